package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/infrastructure/persistence/records"
	pkgerrors "ameliorate/pkg/errors"
)

// TopicRepository implements ports.TopicRepository
type TopicRepository struct {
	db *DB
}

// NewTopicRepository creates a new TopicRepository
func NewTopicRepository(db *DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Create stores a new topic without parts
func (r *TopicRepository) Create(ctx context.Context, topic *aggregates.Topic) error {
	rec := records.FromTopic(topic)
	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO topics (id, creator_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatorID, rec.Title, records.ToMillis(rec.CreatedAt), records.ToMillis(rec.UpdatedAt))
	if isUniqueViolation(err) {
		return pkgerrors.NewConflictError("a topic with this title already exists")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("create topic", err)
	}
	return nil
}

// GetByID loads a topic with its parts
func (r *TopicRepository) GetByID(ctx context.Context, id valueobjects.TopicID) (*aggregates.Topic, error) {
	return r.load(ctx, `SELECT id, creator_id, title, created_at, updated_at FROM topics WHERE id = ?`, id.String())
}

// FindByCreatorAndTitle loads a topic with its parts
func (r *TopicRepository) FindByCreatorAndTitle(ctx context.Context, creatorID, title string) (*aggregates.Topic, error) {
	return r.load(ctx, `SELECT id, creator_id, title, created_at, updated_at FROM topics WHERE creator_id = ? AND title = ?`, creatorID, title)
}

// ListByCreator returns one page of a user's topics, newest first
func (r *TopicRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*aggregates.Topic, int, error) {
	var total int
	if err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics WHERE creator_id = ?`, creatorID).Scan(&total); err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("count topics", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, `
SELECT id, creator_id, title, created_at, updated_at FROM topics
WHERE creator_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`, creatorID, limit, offset)
	if err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("list topics", err)
	}
	defer rows.Close()

	topics := []*aggregates.Topic{}
	for rows.Next() {
		rec, err := scanTopic(rows)
		if err != nil {
			return nil, 0, pkgerrors.NewDatabaseError("scan topic", err)
		}
		topic, err := rec.Topic()
		if err != nil {
			return nil, 0, err
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("list topics", err)
	}
	return topics, total, nil
}

// UpdateTitle stores the topic's current title
func (r *TopicRepository) UpdateTitle(ctx context.Context, topic *aggregates.Topic) error {
	rec := records.FromTopic(topic)
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE topics SET title = ?, updated_at = ? WHERE id = ?`,
		rec.Title, records.ToMillis(rec.UpdatedAt), rec.ID)
	if isUniqueViolation(err) {
		return pkgerrors.NewConflictError("a topic with this title already exists")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("update topic", err)
	}
	return requireAffected(res, "topic")
}

// Delete removes a topic with all of its parts and scores
func (r *TopicRepository) Delete(ctx context.Context, id valueobjects.TopicID) error {
	var res sql.Result
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM user_scores WHERE topic_id = ?`,
			`DELETE FROM edges WHERE topic_id = ?`,
			`DELETE FROM nodes WHERE topic_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id.String()); err != nil {
				return err
			}
		}
		var err error
		res, err = tx.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id.String())
		return err
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete topic", err)
	}
	return requireAffected(res, "topic")
}

// SaveParts inserts new nodes and edges in one transaction
func (r *TopicRepository) SaveParts(ctx context.Context, topicID valueobjects.TopicID, nodes []*entities.Node, edges []*entities.Edge) error {
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		for _, n := range nodes {
			rec := records.FromNode(n)
			if _, err := tx.ExecContext(ctx, `
INSERT INTO nodes (id, topic_id, type, text, argued_diagram_part_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, topicID.String(), rec.Type, rec.Text, rec.ArguedDiagramPartID,
				records.ToMillis(rec.CreatedAt), records.ToMillis(rec.UpdatedAt)); err != nil {
				return err
			}
		}
		for _, e := range edges {
			rec := records.FromEdge(e)
			if _, err := tx.ExecContext(ctx, `
INSERT INTO edges (id, topic_id, source_id, target_id, label, argued_diagram_part_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, topicID.String(), rec.SourceID, rec.TargetID, rec.Label, rec.ArguedDiagramPartID,
				records.ToMillis(rec.CreatedAt)); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE topics SET updated_at = ? WHERE id = ?`, records.ToMillis(time.Now()), topicID.String())
		return err
	})
	if isUniqueViolation(err) {
		return pkgerrors.NewConflictError("graph part already exists")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("save graph parts", err)
	}
	return nil
}

// RemoveParts deletes nodes, edges and any scores on them
func (r *TopicRepository) RemoveParts(ctx context.Context, topicID valueobjects.TopicID, removal aggregates.PartRemoval) error {
	if removal.IsEmpty() {
		return nil
	}
	partIDs := removal.PartIDs()
	edgeIDs := make([]string, 0, len(removal.EdgeIDs))
	for _, id := range removal.EdgeIDs {
		edgeIDs = append(edgeIDs, id.String())
	}
	nodeIDs := make([]string, 0, len(removal.NodeIDs))
	for _, id := range removal.NodeIDs {
		nodeIDs = append(nodeIDs, id.String())
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteIn(ctx, tx, `DELETE FROM user_scores WHERE topic_id = ? AND graph_part_id IN (%s)`, topicID.String(), partIDs); err != nil {
			return err
		}
		if err := deleteIn(ctx, tx, `DELETE FROM edges WHERE topic_id = ? AND id IN (%s)`, topicID.String(), edgeIDs); err != nil {
			return err
		}
		if err := deleteIn(ctx, tx, `DELETE FROM nodes WHERE topic_id = ? AND id IN (%s)`, topicID.String(), nodeIDs); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE topics SET updated_at = ? WHERE id = ?`, records.ToMillis(time.Now()), topicID.String())
		return err
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("remove graph parts", err)
	}
	return nil
}

// SaveScore inserts or replaces a user's score for a part
func (r *TopicRepository) SaveScore(ctx context.Context, score entities.UserScore) error {
	rec := records.FromScore(score)
	_, err := r.db.conn.ExecContext(ctx, `
INSERT INTO user_scores (topic_id, user_id, graph_part_id, value) VALUES (?, ?, ?, ?)
ON CONFLICT (topic_id, user_id, graph_part_id) DO UPDATE SET value = excluded.value`,
		rec.TopicID, rec.UserID, rec.GraphPartID, rec.Value)
	if err != nil {
		return pkgerrors.NewDatabaseError("save score", err)
	}
	return nil
}

func (r *TopicRepository) load(ctx context.Context, query string, args ...any) (*aggregates.Topic, error) {
	rec, err := scanTopic(r.db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("topic")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get topic", err)
	}

	nodes, err := r.loadNodes(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	edges, err := r.loadEdges(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	scores, err := r.loadScores(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return records.AssembleTopic(rec, nodes, edges, scores)
}

func (r *TopicRepository) loadNodes(ctx context.Context, topicID string) ([]records.NodeRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
SELECT id, topic_id, type, text, argued_diagram_part_id, created_at, updated_at
FROM nodes WHERE topic_id = ? ORDER BY rowid`, topicID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load nodes", err)
	}
	defer rows.Close()

	var out []records.NodeRecord
	for rows.Next() {
		var (
			rec              records.NodeRecord
			created, updated int64
		)
		if err := rows.Scan(&rec.ID, &rec.TopicID, &rec.Type, &rec.Text, &rec.ArguedDiagramPartID, &created, &updated); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan node", err)
		}
		rec.CreatedAt, rec.UpdatedAt = records.FromMillis(created), records.FromMillis(updated)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *TopicRepository) loadEdges(ctx context.Context, topicID string) ([]records.EdgeRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
SELECT id, topic_id, source_id, target_id, label, argued_diagram_part_id, created_at
FROM edges WHERE topic_id = ? ORDER BY rowid`, topicID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load edges", err)
	}
	defer rows.Close()

	var out []records.EdgeRecord
	for rows.Next() {
		var (
			rec     records.EdgeRecord
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.TopicID, &rec.SourceID, &rec.TargetID, &rec.Label, &rec.ArguedDiagramPartID, &created); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan edge", err)
		}
		rec.CreatedAt = records.FromMillis(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *TopicRepository) loadScores(ctx context.Context, topicID string) ([]records.ScoreRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT topic_id, user_id, graph_part_id, value FROM user_scores WHERE topic_id = ?`, topicID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load scores", err)
	}
	defer rows.Close()

	var out []records.ScoreRecord
	for rows.Next() {
		var rec records.ScoreRecord
		if err := rows.Scan(&rec.TopicID, &rec.UserID, &rec.GraphPartID, &rec.Value); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan score", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (records.TopicRecord, error) {
	var (
		rec              records.TopicRecord
		created, updated int64
	)
	if err := row.Scan(&rec.ID, &rec.CreatorID, &rec.Title, &created, &updated); err != nil {
		return records.TopicRecord{}, err
	}
	rec.CreatedAt, rec.UpdatedAt = records.FromMillis(created), records.FromMillis(updated)
	return rec, nil
}

// deleteIn runs a DELETE whose %s is expanded to one placeholder per id
func deleteIn(ctx context.Context, tx *sql.Tx, query, topicID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, topicID)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, strings.Replace(query, "%s", placeholders, 1), args...)
	return err
}

func requireAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewDatabaseError("rows affected", err)
	}
	if n == 0 {
		return pkgerrors.NewNotFoundError(resource)
	}
	return nil
}
