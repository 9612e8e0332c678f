package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/infrastructure/persistence/records"
	pkgerrors "ameliorate/pkg/errors"
)

const topicColumns = `id, creator_id, title, created_at, updated_at`

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
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO topics (`+topicColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.CreatorID, rec.Title, rec.CreatedAt, rec.UpdatedAt)
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
	return r.load(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id.String())
}

// FindByCreatorAndTitle loads a topic with its parts
func (r *TopicRepository) FindByCreatorAndTitle(ctx context.Context, creatorID, title string) (*aggregates.Topic, error) {
	return r.load(ctx, `SELECT `+topicColumns+` FROM topics WHERE creator_id = $1 AND title = $2`, creatorID, title)
}

// ListByCreator returns one page of a user's topics, newest first
func (r *TopicRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*aggregates.Topic, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM topics WHERE creator_id = $1`, creatorID).Scan(&total); err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("count topics", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
SELECT `+topicColumns+` FROM topics
WHERE creator_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, creatorID, limit, offset)
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
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE topics SET title = $1, updated_at = $2 WHERE id = $3`,
		rec.Title, rec.UpdatedAt, rec.ID)
	if isUniqueViolation(err) {
		return pkgerrors.NewConflictError("a topic with this title already exists")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("update topic", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError("topic")
	}
	return nil
}

// Delete removes a topic. Parts and scores go with it through ON DELETE CASCADE.
func (r *TopicRepository) Delete(ctx context.Context, id valueobjects.TopicID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("delete topic", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError("topic")
	}
	return nil
}

// SaveParts inserts new nodes and edges in one transaction
func (r *TopicRepository) SaveParts(ctx context.Context, topicID valueobjects.TopicID, nodes []*entities.Node, edges []*entities.Edge) error {
	batch := &pgx.Batch{}
	for _, n := range nodes {
		rec := records.FromNode(n)
		batch.Queue(`
INSERT INTO nodes (id, topic_id, type, text, argued_diagram_part_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, topicID.String(), rec.Type, rec.Text, rec.ArguedDiagramPartID, rec.CreatedAt, rec.UpdatedAt)
	}
	for _, e := range edges {
		rec := records.FromEdge(e)
		batch.Queue(`
INSERT INTO edges (id, topic_id, source_id, target_id, label, argued_diagram_part_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, topicID.String(), rec.SourceID, rec.TargetID, rec.Label, rec.ArguedDiagramPartID, rec.CreatedAt)
	}
	batch.Queue(`UPDATE topics SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), topicID.String())

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
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
	edgeIDs := make([]string, 0, len(removal.EdgeIDs))
	for _, id := range removal.EdgeIDs {
		edgeIDs = append(edgeIDs, id.String())
	}
	nodeIDs := make([]string, 0, len(removal.NodeIDs))
	for _, id := range removal.NodeIDs {
		nodeIDs = append(nodeIDs, id.String())
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tid := topicID.String()
		if _, err := tx.Exec(ctx, `DELETE FROM user_scores WHERE topic_id = $1 AND graph_part_id = ANY($2)`, tid, removal.PartIDs()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM edges WHERE topic_id = $1 AND id = ANY($2)`, tid, edgeIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM nodes WHERE topic_id = $1 AND id = ANY($2)`, tid, nodeIDs); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE topics SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), tid)
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
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO user_scores (topic_id, user_id, graph_part_id, value) VALUES ($1, $2, $3, $4)
ON CONFLICT (topic_id, user_id, graph_part_id) DO UPDATE SET value = EXCLUDED.value`,
		rec.TopicID, rec.UserID, rec.GraphPartID, rec.Value)
	if err != nil {
		return pkgerrors.NewDatabaseError("save score", err)
	}
	return nil
}

func (r *TopicRepository) load(ctx context.Context, query string, args ...any) (*aggregates.Topic, error) {
	rec, err := scanTopic(r.db.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("topic")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get topic", err)
	}

	nodes, err := collect(ctx, r.db, `
SELECT id, topic_id, type, text, argued_diagram_part_id, created_at, updated_at
FROM nodes WHERE topic_id = $1 ORDER BY seq`, rec.ID, func(row pgx.CollectableRow) (records.NodeRecord, error) {
		var n records.NodeRecord
		err := row.Scan(&n.ID, &n.TopicID, &n.Type, &n.Text, &n.ArguedDiagramPartID, &n.CreatedAt, &n.UpdatedAt)
		n.CreatedAt, n.UpdatedAt = n.CreatedAt.UTC(), n.UpdatedAt.UTC()
		return n, err
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load nodes", err)
	}

	edges, err := collect(ctx, r.db, `
SELECT id, topic_id, source_id, target_id, label, argued_diagram_part_id, created_at
FROM edges WHERE topic_id = $1 ORDER BY seq`, rec.ID, func(row pgx.CollectableRow) (records.EdgeRecord, error) {
		var e records.EdgeRecord
		err := row.Scan(&e.ID, &e.TopicID, &e.SourceID, &e.TargetID, &e.Label, &e.ArguedDiagramPartID, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load edges", err)
	}

	scores, err := collect(ctx, r.db,
		`SELECT topic_id, user_id, graph_part_id, value FROM user_scores WHERE topic_id = $1`,
		rec.ID, pgx.RowToStructByPos[records.ScoreRecord])
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load scores", err)
	}

	return records.AssembleTopic(rec, nodes, edges, scores)
}

func collect[T any](ctx context.Context, db *DB, query, topicID string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Pool.Query(ctx, query, topicID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}

func scanTopic(row pgx.Row) (records.TopicRecord, error) {
	var rec records.TopicRecord
	if err := row.Scan(&rec.ID, &rec.CreatorID, &rec.Title, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return records.TopicRecord{}, err
	}
	rec.CreatedAt, rec.UpdatedAt = rec.CreatedAt.UTC(), rec.UpdatedAt.UTC()
	return rec, nil
}
