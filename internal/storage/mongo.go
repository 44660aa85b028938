package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/terra-clan/contest-engine/internal/models"
)

// Collection names
const (
	collUsers       = "users"
	collTokens      = "auth_tokens"
	collTeams       = "teams"
	collSubmissions = "submissions"
	collEvaluations = "evaluations"
	collChat        = "chat_messages"
)

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// NewMongoRepository connects to MongoDB and ensures indexes exist
func NewMongoRepository(ctx context.Context, cfg MongoConfig) (*MongoRepository, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoRepository{
		client: client,
		db:     client.Database(cfg.Database),
	}

	if err := r.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return r, nil
}

// EnsureIndexes creates the unique keys the repository relies on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "approved", Value: 1}}},
		},
		collTokens: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		collTeams: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "leadId", Value: 1}}},
		},
		collSubmissions: {
			{Keys: bson.D{{Key: "teamId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "assignedEvaluators", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		collEvaluations: {
			{
				Keys:    bson.D{{Key: "submissionId", Value: 1}, {Key: "evaluatorId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collChat: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}

	return nil
}

// Ping checks database connectivity
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) findOne(ctx context.Context, coll string, filter interface{}, out interface{}) error {
	err := r.db.Collection(coll).FindOne(ctx, filter).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find in %s: %w", coll, err)
	}
	return nil
}

// Users

func (r *MongoRepository) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := r.db.Collection(collUsers).InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.findOne(ctx, collUsers, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.findOne(ctx, collUsers, bson.M{"email": email}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func userFilter(filter models.UserFilter) bson.M {
	f := bson.M{}
	if filter.Role != "" {
		f["role"] = filter.Role
	}
	if filter.Approved != nil {
		f["approved"] = *filter.Approved
	}
	return f
}

func (r *MongoRepository) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(collUsers).Find(ctx, userFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *MongoRepository) CountUsers(ctx context.Context, filter models.UserFilter) (int64, error) {
	n, err := r.db.Collection(collUsers).CountDocuments(ctx, userFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) SetUserApproved(ctx context.Context, id string, approved bool) error {
	result, err := r.db.Collection(collUsers).UpdateByID(ctx, id, bson.M{"$set": bson.M{"approved": approved}})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Auth tokens

func (r *MongoRepository) CreateToken(ctx context.Context, t *models.AuthToken) error {
	if _, err := r.db.Collection(collTokens).InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetToken(ctx context.Context, token string) (*models.AuthToken, error) {
	var t models.AuthToken
	if err := r.findOne(ctx, collTokens, bson.M{"_id": token}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Teams

func (r *MongoRepository) CreateTeam(ctx context.Context, t *models.Team) error {
	if _, err := r.db.Collection(collTeams).InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTeamName
		}
		return fmt.Errorf("failed to create team: %w", err)
	}

	_, err := r.db.Collection(collUsers).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": t.Members}},
		bson.M{"$set": bson.M{"teamId": t.ID}},
	)
	if err != nil {
		return fmt.Errorf("failed to link team members: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	var t models.Team
	if err := r.findOne(ctx, collTeams, bson.M{"_id": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) GetTeamByLead(ctx context.Context, leadID string) (*models.Team, error) {
	var t models.Team
	if err := r.findOne(ctx, collTeams, bson.M{"leadId": leadID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) GetTeamBySlug(ctx context.Context, slug string) (*models.Team, error) {
	var t models.Team
	if err := r.findOne(ctx, collTeams, bson.M{"slug": slug}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddTeamMember claims the user, then pushes onto the team only while the
// member array is below the cap. A failed push releases the claim.
func (r *MongoRepository) AddTeamMember(ctx context.Context, teamID, userID string) error {
	users := r.db.Collection(collUsers)

	claim, err := users.UpdateOne(ctx,
		bson.M{"_id": userID, "teamId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"teamId": teamID}},
	)
	if err != nil {
		return fmt.Errorf("failed to link user: %w", err)
	}
	if claim.MatchedCount == 0 {
		if _, err := r.GetUser(ctx, userID); err != nil {
			return err
		}
		return ErrAlreadyInTeam
	}

	capField := fmt.Sprintf("members.%d", models.MaxTeamMembers-1)
	push, err := r.db.Collection(collTeams).UpdateOne(ctx,
		bson.M{"_id": teamID, capField: bson.M{"$exists": false}},
		bson.M{"$push": bson.M{"members": userID}},
	)
	if err == nil && push.MatchedCount == 1 {
		return nil
	}

	if _, uerr := users.UpdateByID(ctx, userID, bson.M{"$unset": bson.M{"teamId": ""}}); uerr != nil {
		return fmt.Errorf("failed to release user after team update: %w", uerr)
	}
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	if _, err := r.GetTeam(ctx, teamID); err != nil {
		return err
	}
	return ErrTeamFull
}

// Submissions

func (r *MongoRepository) CreateSubmission(ctx context.Context, s *models.Submission) error {
	if _, err := r.db.Collection(collSubmissions).InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	var s models.Submission
	if err := r.findOne(ctx, collSubmissions, bson.M{"_id": id}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) GetSubmissionByTeam(ctx context.Context, teamID string) (*models.Submission, error) {
	var s models.Submission
	if err := r.findOne(ctx, collSubmissions, bson.M{"teamId": teamID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) UpdateSubmissionContent(ctx context.Context, s *models.Submission) error {
	update := bson.M{"$set": bson.M{
		"videoLink":        s.VideoLink,
		"topic":            s.Topic,
		"learningOutcomes": s.LearningOutcomes,
		"description":      s.Description,
		"updatedAt":        s.UpdatedAt,
	}}

	result, err := r.db.Collection(collSubmissions).UpdateByID(ctx, s.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func submissionFilter(filter models.SubmissionFilter) bson.M {
	f := bson.M{}
	if filter.Status != "" {
		f["status"] = filter.Status
	}
	if filter.EvaluatorID != "" {
		f["assignedEvaluators"] = filter.EvaluatorID
	}
	return f
}

func (r *MongoRepository) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(collSubmissions).Find(ctx, submissionFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	var items []*models.Submission
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}
	return items, nil
}

func (r *MongoRepository) CountSubmissions(ctx context.Context, filter models.SubmissionFilter) (int64, error) {
	n, err := r.db.Collection(collSubmissions).CountDocuments(ctx, submissionFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

// MarkEvaluated counts after the caller's insert and flips status with a
// filter that only matches while the submission is still open
func (r *MongoRepository) MarkEvaluated(ctx context.Context, submissionID string, quorum int) (bool, error) {
	count, err := r.CountEvaluations(ctx, submissionID)
	if err != nil {
		return false, err
	}

	if count < int64(quorum) {
		if _, err := r.GetSubmission(ctx, submissionID); err != nil {
			return false, err
		}
		return false, nil
	}

	result, err := r.db.Collection(collSubmissions).UpdateOne(ctx,
		bson.M{"_id": submissionID, "status": bson.M{"$ne": models.StatusEvaluated}},
		bson.M{"$set": bson.M{"status": models.StatusEvaluated}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark submission evaluated: %w", err)
	}
	if result.ModifiedCount == 1 {
		return true, nil
	}

	if _, err := r.GetSubmission(ctx, submissionID); err != nil {
		return false, err
	}
	return false, nil
}

// Evaluations

func (r *MongoRepository) CreateEvaluation(ctx context.Context, e *models.Evaluation) error {
	if _, err := r.db.Collection(collEvaluations).InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEvaluation
		}
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (r *MongoRepository) ListEvaluations(ctx context.Context, submissionID string) ([]*models.Evaluation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "evaluatedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(collEvaluations).Find(ctx, bson.M{"submissionId": submissionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	var items []*models.Evaluation
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode evaluations: %w", err)
	}
	return items, nil
}

func (r *MongoRepository) CountEvaluations(ctx context.Context, submissionID string) (int64, error) {
	n, err := r.db.Collection(collEvaluations).CountDocuments(ctx, bson.M{"submissionId": submissionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return n, nil
}

// Chat

func (r *MongoRepository) CreateChatMessage(ctx context.Context, m *models.ChatMessage) error {
	if _, err := r.db.Collection(collChat).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

func (r *MongoRepository) ListChatMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.db.Collection(collChat).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	var items []*models.ChatMessage
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode chat messages: %w", err)
	}

	// newest-first from the query, oldest-first to callers
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}
