package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"strider/internal/model"
)

// Neo4j stores todos as (:Todo) nodes carrying an owner property. Session
// isolation comes from matching on owner in every query.
type Neo4j struct {
	driver neo4j.DriverWithContext
}

func NewNeo4j(uri, username, password string) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	return &Neo4j{driver: driver}, nil
}

func (s *Neo4j) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4j) List(ctx context.Context, owner string) ([]model.Todo, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Todo {owner: $owner}) "+
				"RETURN t.id AS id, t.text AS text, t.done AS done "+
				"ORDER BY t.created_at",
			map[string]any{"owner": owner},
		)
		if err != nil {
			return nil, err
		}

		todos := []model.Todo{}
		for res.Next(ctx) {
			record := res.Record()
			todos = append(todos, model.Todo{
				ID:   record.Values[0].(string),
				Text: record.Values[1].(string),
				Done: record.Values[2].(bool),
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return todos, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.Todo), nil
}

func (s *Neo4j) Create(ctx context.Context, owner, text string) (model.Todo, error) {
	todo := model.Todo{ID: uuid.New().String(), Text: text}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"CREATE (t:Todo {id: $id, owner: $owner, text: $text, done: false, created_at: timestamp()})",
			map[string]any{
				"id":    todo.ID,
				"owner": owner,
				"text":  todo.Text,
			},
		)
		return nil, err
	})
	if err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

func (s *Neo4j) Toggle(ctx context.Context, owner, id string) (model.Todo, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Todo {id: $id, owner: $owner}) "+
				"SET t.done = NOT t.done "+
				"RETURN t.id AS id, t.text AS text, t.done AS done",
			map[string]any{"id": id, "owner": owner},
		)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			record := res.Record()
			return model.Todo{
				ID:   record.Values[0].(string),
				Text: record.Values[1].(string),
				Done: record.Values[2].(bool),
			}, nil
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return model.Todo{}, err
	}
	return result.(model.Todo), nil
}

func (s *Neo4j) Delete(ctx context.Context, owner, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Todo {id: $id, owner: $owner}) "+
				"WITH t, t.id AS deleted "+
				"DETACH DELETE t "+
				"RETURN deleted",
			map[string]any{"id": id, "owner": owner},
		)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, ErrNotFound
		}
		return nil, nil
	})
	return err
}
