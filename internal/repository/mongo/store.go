// Package mongo is the repository.Store backed by MongoDB. Documents use the
// bson tags declared on the models; task insertion order comes from a
// counters collection.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
	"projectmanager/pkg/logger"
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
	tasksCollection    = "tasks"
	settingsCollection = "settings"
	countersCollection = "counters"
)

// DefaultTimeout bounds every single driver call.
const DefaultTimeout = 10 * time.Second

type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

var _ repository.Store = (*Store)(nil)

func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName), timeout: DefaultTimeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) users() *mongo.Collection    { return s.db.Collection(usersCollection) }
func (s *Store) projects() *mongo.Collection { return s.db.Collection(projectsCollection) }
func (s *Store) tasks() *mongo.Collection    { return s.db.Collection(tasksCollection) }
func (s *Store) settings() *mongo.Collection { return s.db.Collection(settingsCollection) }

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(what + " not found")
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict(what + " already exists")
	}
	return apperr.Internal("Database error", err)
}

func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "parent_task", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}}},
		},
		settingsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			logger.SystemLogger.Error("Error creating indexes", zap.String("collection", name), zap.Error(err))
			return apperr.Internal("Error creating indexes", err)
		}
	}
	logger.SystemLogger.Info("Collections 'users', 'projects', 'tasks', 'settings' are ready")
	return nil
}

func (s *Store) Drop(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for _, name := range []string{settingsCollection, tasksCollection, projectsCollection, usersCollection, countersCollection} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			logger.SystemLogger.Error("Error dropping collection", zap.String("collection", name), zap.Error(err))
			return apperr.Internal("Error dropping collections", err)
		}
	}
	logger.SystemLogger.Info("Collections 'users', 'projects', 'tasks', 'settings' are deleted")
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.users().InsertOne(ctx, u)
	return translate(err, "User")
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var u models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, translate(err, "User")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var u models.User
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, translate(err, "User")
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "email", Value: 1}})
	cursor, err := s.users().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate(err, "User")
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, translate(err, "User")
	}
	return users, nil
}

func (s *Store) UserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1, "email": 1})
	cursor, err := s.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, translate(err, "User")
	}
	var out []models.UserSummary
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err, "User")
	}
	return out, nil
}

// Projects

func normalizeProject(p *models.Project) {
	if p.MemberIDs == nil {
		p.MemberIDs = []string{}
	}
}

func (s *Store) findProjects(ctx context.Context, filter bson.M) ([]models.Project, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.projects().Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "Project")
	}
	var out []models.Project
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err, "Project")
	}
	for i := range out {
		normalizeProject(&out[i])
	}
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, p models.Project) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	normalizeProject(&p)
	_, err := s.projects().InsertOne(ctx, p)
	return translate(err, "Project")
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var p models.Project
	if err := s.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Project{}, translate(err, "Project")
	}
	normalizeProject(&p)
	return p, nil
}

func (s *Store) ProjectsByIDs(ctx context.Context, ids []string) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findProjects(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) UpdateProject(ctx context.Context, p models.Project) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	normalizeProject(&p)
	update := bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"members":     p.MemberIDs,
		"start_date":  p.StartDate,
		"end_date":    p.EndDate,
		"color":       p.Color,
		"updated_at":  p.UpdatedAt,
	}}
	res, err := s.projects().UpdateByID(ctx, p.ID, update)
	if err != nil {
		return translate(err, "Project")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Project not found")
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.projects().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "Project")
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("Project not found")
	}
	return nil
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]models.Project, error) {
	return s.findProjects(ctx, bson.M{"$or": bson.A{
		bson.M{"owner": userID},
		bson.M{"members": userID},
	}})
}

// Tasks

// nextSeq increments the named counter and returns its new value.
func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	return counter.Value, err
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	seq, err := s.nextSeq(ctx, tasksCollection)
	if err != nil {
		return translate(err, "Task")
	}
	t.Seq = seq
	_, err = s.tasks().InsertOne(ctx, t)
	return translate(err, "Task")
}

func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var t models.Task
	err := s.tasks().FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	return t, translate(err, "Task")
}

func (s *Store) findTasks(ctx context.Context, filter bson.M, limit int) ([]models.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.tasks().Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, "Task")
	}
	var out []models.Task
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err, "Task")
	}
	return out, nil
}

func (s *Store) TasksByIDs(ctx context.Context, ids []string) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findTasks(ctx, bson.M{"_id": bson.M{"$in": ids}}, 0)
}

func (s *Store) UpdateTask(ctx context.Context, t models.Task) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{
		"title":        t.Title,
		"description":  t.Description,
		"parent_task":  t.ParentTaskID,
		"assigned_to":  t.AssignedToID,
		"reviewed_by":  t.ReviewedByID,
		"priority":     t.Priority,
		"status":       t.Status,
		"start_date":   t.StartDate,
		"due_date":     t.DueDate,
		"completed_at": t.CompletedAt,
		"updated_at":   t.UpdatedAt,
	}}
	res, err := s.tasks().UpdateByID(ctx, t.ID, update)
	if err != nil {
		return translate(err, "Task")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Task not found")
	}
	return nil
}

// taskFilter renders q as a query document. ok is false when q can match
// nothing.
func taskFilter(q repository.TaskQuery) (bson.M, bool) {
	filter := bson.M{}
	if q.ProjectIDs != nil {
		if len(q.ProjectIDs) == 0 {
			return nil, false
		}
		filter["project"] = bson.M{"$in": q.ProjectIDs}
	}
	if q.RootOnly {
		filter["parent_task"] = nil
	}
	if q.ParentTaskID != nil {
		filter["parent_task"] = *q.ParentTaskID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if q.AssignedTo != "" {
		filter["assigned_to"] = q.AssignedTo
	}
	return filter, true
}

func (s *Store) ListTasks(ctx context.Context, q repository.TaskQuery) ([]models.Task, error) {
	filter, ok := taskFilter(q)
	if !ok {
		return nil, nil
	}
	return s.findTasks(ctx, filter, q.Limit)
}

func (s *Store) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.tasks().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, translate(err, "Task")
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteTasksByProject(ctx context.Context, projectID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.tasks().DeleteMany(ctx, bson.M{"project": projectID})
	if err != nil {
		return 0, translate(err, "Task")
	}
	return res.DeletedCount, nil
}

// Settings

func (s *Store) GetSettings(ctx context.Context, userID string) (models.Settings, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var st models.Settings
	err := s.settings().FindOne(ctx, bson.M{"user": userID}).Decode(&st)
	return st, translate(err, "Settings")
}

func (s *Store) CreateSettings(ctx context.Context, st models.Settings) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.settings().InsertOne(ctx, st)
	return translate(err, "Settings")
}

func (s *Store) UpdateSettings(ctx context.Context, st models.Settings) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{
		"theme":                 st.Theme,
		"language":              st.Language,
		"notifications_enabled": st.NotificationsEnabled,
		"color_palette":         st.ColorPalette,
		"updated_at":            st.UpdatedAt,
	}}
	res, err := s.settings().UpdateOne(ctx, bson.M{"user": st.UserID}, update)
	if err != nil {
		return translate(err, "Settings")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Settings not found")
	}
	return nil
}

// Stats

func (s *Store) count(ctx context.Context, coll *mongo.Collection, filter bson.M) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := coll.CountDocuments(ctx, filter)
	return n, translate(err, "Stats")
}

func (s *Store) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	var st models.Stats
	counts := []struct {
		dst    *int64
		coll   *mongo.Collection
		filter bson.M
	}{
		{&st.TotalUsers, s.users(), bson.M{}},
		{&st.TotalProjects, s.projects(), bson.M{}},
		{&st.TotalTasks, s.tasks(), bson.M{}},
		{&st.ActiveProjects, s.projects(), bson.M{"end_date": bson.M{"$gte": now}}},
		{&st.CompletedTasks, s.tasks(), bson.M{"status": models.StatusCompleted}},
		{&st.PendingTasks, s.tasks(), bson.M{"status": models.StatusPending}},
		{&st.InProgressTasks, s.tasks(), bson.M{"status": models.StatusInProgress}},
	}
	for _, c := range counts {
		n, err := s.count(ctx, c.coll, c.filter)
		if err != nil {
			return models.Stats{}, err
		}
		*c.dst = n
	}
	return st, nil
}

func (s *Store) CountOwnedProjects(ctx context.Context, userID string) (int64, error) {
	return s.count(ctx, s.projects(), bson.M{"owner": userID})
}

func (s *Store) CountAssignedTasks(ctx context.Context, userID string) (int64, error) {
	return s.count(ctx, s.tasks(), bson.M{"assigned_to": userID})
}
