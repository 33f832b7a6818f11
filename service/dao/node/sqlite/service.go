package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// columns maps list parameter names to indexed columns
var columns = map[string]string{
	dao.ParamState:    "state",
	dao.ParamParentID: "parent_id",
	dao.ParamKind:     "kind",
	dao.ParamType:     "type",
}

// Service implements node storage in a SQLite database; the full node is kept as JSON next to indexed columns
type Service struct {
	db *sql.DB
}

var _ dao.Service[string, execution.Node] = (*Service)(nil)

// New opens the database at path (":memory:" for a private in-memory database) and creates the schema
func New(ctx context.Context, path string) (*Service, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection of an in-memory database is a different database
	db.SetMaxOpenConns(1)
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save upserts a node snapshot
func (s *Service) Save(ctx context.Context, node *execution.Node) error {
	if node == nil {
		return dao.ErrNilEntity
	}
	if node.ID == "" {
		return dao.ErrInvalidID
	}
	snapshot := node.Clone()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal node %v: %w", node.ID, err)
	}
	var exitStatus sql.NullInt64
	if status := snapshot.ExitStatus(); status >= 0 {
		exitStatus = sql.NullInt64{Int64: int64(status), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO nodes (id, parent_id, kind, type, state, exit_status, created_at, updated_at, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    state = excluded.state,
    exit_status = excluded.exit_status,
    updated_at = excluded.updated_at,
    data = excluded.data`,
		snapshot.ID, snapshot.ParentID, string(snapshot.Kind), snapshot.Type, string(snapshot.State), exitStatus,
		snapshot.CreatedAt.UnixNano(), snapshot.UpdatedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save node %v: %w", node.ID, err)
	}
	return nil
}

// Load retrieves a node
func (s *Service) Load(ctx context.Context, id string) (*execution.Node, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM nodes WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: node %v", dao.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %v: %w", id, err)
	}
	return decode(data)
}

// Delete removes a node
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete node %v: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: node %v", dao.ErrNotFound, id)
	}
	return nil
}

// List returns nodes matching parameters ordered by creation time
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Node, error) {
	query, args := listQuery(parameters)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()
	var nodes []*execution.Node
	for rows.Next() {
		var data string
		if err = rows.Scan(&data); err != nil {
			return nil, err
		}
		node, err := decode(data)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func listQuery(parameters []*dao.Parameter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		column, ok := columns[parameter.Name]
		if !ok {
			continue
		}
		switch value := parameter.Value.(type) {
		case string:
			conditions = append(conditions, column+" = ?")
			args = append(args, value)
		case []string:
			if len(value) == 0 {
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(value)), ",")
			conditions = append(conditions, column+" IN ("+placeholders+")")
			for _, v := range value {
				args = append(args, v)
			}
		}
	}
	query := "SELECT data FROM nodes"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY created_at, id", args
}

func decode(data string) (*execution.Node, error) {
	node := &execution.Node{}
	if err := json.Unmarshal([]byte(data), node); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}
	return node, nil
}
