package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paradise-007/healthally/pkg/domain"
)

// DefaultDatabase is the database the campus deployment has always used.
const DefaultDatabase = "healthcare_chatbot"

// MongoStore persists records in MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo uri required")
	}
	if strings.TrimSpace(database) == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique username indexes and the lookup indexes used by
// slot checks and chat history. Existing duplicate data makes this fail; callers
// may log and continue.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	plan := map[Collection][]mongo.IndexModel{
		CollectionUsers:  {{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
		CollectionAdmins: {{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
		CollectionFirstAidRooms: {
			{Keys: bson.D{{Key: "department", Value: 1}}, Options: unique},
		},
		CollectionAppointments: {
			{Keys: bson.D{{Key: "doctor_id", Value: 1}, {Key: "date", Value: 1}, {Key: "time_slot", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		CollectionChatHistory: {{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}}}},
	}
	for _, c := range Collections {
		models, ok := plan[c]
		if !ok {
			continue
		}
		if _, err := s.coll(c).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", c, err)
		}
	}
	return nil
}

func (s *MongoStore) coll(c Collection) *mongo.Collection {
	return s.db.Collection(string(c))
}

// users

func (s *MongoStore) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	doc := toUserDoc(user)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll(CollectionUsers).InsertOne(ctx, doc); err != nil {
		return domain.User{}, insertErr(err)
	}
	return fromUserDoc(doc), nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.User{}, false, nil
	}
	var doc userDoc
	found, err := s.findOne(ctx, CollectionUsers, bson.M{"_id": oid}, &doc)
	if err != nil || !found {
		return domain.User{}, false, err
	}
	return fromUserDoc(doc), true, nil
}

func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	var doc userDoc
	found, err := s.findOne(ctx, CollectionUsers, bson.M{"username": username}, &doc)
	if err != nil || !found {
		return domain.User{}, false, err
	}
	return fromUserDoc(doc), true, nil
}

// UpdateUser rewrites the profile fields. The password is only replaced when a new hash is set.
func (s *MongoStore) UpdateUser(ctx context.Context, user domain.User) (bool, error) {
	oid, ok := objectID(user.ID)
	if !ok {
		return false, nil
	}
	set := bson.M{
		"username":   user.Username,
		"email":      user.Email,
		"contact":    user.Contact,
		"enrollment": user.Enrollment,
		"department": user.Department,
		"hostel":     user.Hostel,
	}
	if user.PasswordHash != "" {
		set["password"] = user.PasswordHash
	}
	return s.updateByID(ctx, CollectionUsers, oid, bson.M{"$set": set})
}

func (s *MongoStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	_, err := s.updateByID(ctx, CollectionUsers, oid, bson.M{"$set": bson.M{"last_login": at.UTC()}})
	return err
}

func (s *MongoStore) SetUserPassword(ctx context.Context, id, hash string) error {
	return s.setPassword(ctx, CollectionUsers, id, hash)
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var docs []userDoc
	if err := s.findAll(ctx, CollectionUsers, bson.M{}, &docs, nil); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromUserDoc(d))
	}
	return out, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, CollectionUsers, id)
}

// UsersByDepartment groups user counts by department on the server.
func (s *MongoStore) UsersByDepartment(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.coll(CollectionUsers).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate users by department: %w", err)
	}
	var rows []struct {
		Department string `bson:"_id"`
		Count      int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode department counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Department] += r.Count
	}
	return out, nil
}

// admins

func (s *MongoStore) CreateAdmin(ctx context.Context, admin domain.Admin) (domain.Admin, error) {
	doc := toAdminDoc(admin)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll(CollectionAdmins).InsertOne(ctx, doc); err != nil {
		return domain.Admin{}, insertErr(err)
	}
	return fromAdminDoc(doc), nil
}

func (s *MongoStore) GetAdminByID(ctx context.Context, id string) (domain.Admin, bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.Admin{}, false, nil
	}
	var doc adminDoc
	found, err := s.findOne(ctx, CollectionAdmins, bson.M{"_id": oid}, &doc)
	if err != nil || !found {
		return domain.Admin{}, false, err
	}
	return fromAdminDoc(doc), true, nil
}

func (s *MongoStore) GetAdminByUsername(ctx context.Context, username string) (domain.Admin, bool, error) {
	var doc adminDoc
	found, err := s.findOne(ctx, CollectionAdmins, bson.M{"username": username}, &doc)
	if err != nil || !found {
		return domain.Admin{}, false, err
	}
	return fromAdminDoc(doc), true, nil
}

func (s *MongoStore) SetAdminPassword(ctx context.Context, id, hash string) error {
	return s.setPassword(ctx, CollectionAdmins, id, hash)
}

func (s *MongoStore) setPassword(ctx context.Context, c Collection, id, hash string) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	_, err := s.updateByID(ctx, c, oid, bson.M{"$set": bson.M{"password": hash}})
	return err
}

func (s *MongoStore) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	var docs []adminDoc
	if err := s.findAll(ctx, CollectionAdmins, bson.M{}, &docs, nil); err != nil {
		return nil, err
	}
	out := make([]domain.Admin, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromAdminDoc(d))
	}
	return out, nil
}

func (s *MongoStore) DeleteAdmin(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, CollectionAdmins, id)
}

// doctors

func (s *MongoStore) CreateDoctor(ctx context.Context, doctor domain.Doctor) (domain.Doctor, error) {
	doc := toDoctorDoc(doctor)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll(CollectionDoctors).InsertOne(ctx, doc); err != nil {
		return domain.Doctor{}, insertErr(err)
	}
	return fromDoctorDoc(doc), nil
}

func (s *MongoStore) GetDoctor(ctx context.Context, id string) (domain.Doctor, bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.Doctor{}, false, nil
	}
	var doc doctorDoc
	found, err := s.findOne(ctx, CollectionDoctors, bson.M{"_id": oid}, &doc)
	if err != nil || !found {
		return domain.Doctor{}, false, err
	}
	return fromDoctorDoc(doc), true, nil
}

func (s *MongoStore) ListDoctors(ctx context.Context, filter DoctorFilter) ([]domain.Doctor, error) {
	q := bson.M{}
	if !filter.IncludeUnavailable {
		q["availability_days"] = bson.M{"$exists": true, "$ne": bson.A{}}
	}
	if filter.Specialization != "" {
		q["specialization"] = filter.Specialization
	}
	var docs []doctorDoc
	if err := s.findAll(ctx, CollectionDoctors, q, &docs, nil); err != nil {
		return nil, err
	}
	out := make([]domain.Doctor, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoctorDoc(d))
	}
	return out, nil
}

func (s *MongoStore) UpdateDoctor(ctx context.Context, doctor domain.Doctor) (bool, error) {
	oid, ok := objectID(doctor.ID)
	if !ok {
		return false, nil
	}
	doc := toDoctorDoc(doctor)
	doc.ID = oid
	res, err := s.coll(CollectionDoctors).ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return false, fmt.Errorf("replace doctor: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeleteDoctor(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, CollectionDoctors, id)
}

// appointments

func (s *MongoStore) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	doc := toAppointmentDoc(appt)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll(CollectionAppointments).InsertOne(ctx, doc); err != nil {
		return domain.Appointment{}, insertErr(err)
	}
	return fromAppointmentDoc(doc), nil
}

// Appointments reference doctors by the hex string of their id.
func (s *MongoStore) AppointmentExists(ctx context.Context, doctorID, date, timeSlot string) (bool, error) {
	n, err := s.coll(CollectionAppointments).CountDocuments(ctx,
		bson.M{"doctor_id": doctorID, "date": date, "time_slot": timeSlot},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check appointment: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	var docs []appointmentDoc
	if err := s.findAll(ctx, CollectionAppointments, bson.M{"doctor_id": doctorID, "date": date}, &docs, nil); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.TimeSlot)
	}
	return out, nil
}

func (s *MongoStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["user_id"] = filter.UserID
	}
	if filter.DoctorID != "" {
		q["doctor_id"] = filter.DoctorID
	}
	if filter.Date != "" {
		q["date"] = filter.Date
	}
	var docs []appointmentDoc
	sortOpt := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time_slot", Value: 1}})
	if err := s.findAll(ctx, CollectionAppointments, q, &docs, sortOpt); err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromAppointmentDoc(d))
	}
	return out, nil
}

func (s *MongoStore) DeleteAppointment(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, CollectionAppointments, id)
}

// chat history

func (s *MongoStore) AppendChatMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	doc := toChatDoc(msg)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll(CollectionChatHistory).InsertOne(ctx, doc); err != nil {
		return domain.ChatMessage{}, insertErr(err)
	}
	return fromChatDoc(doc), nil
}

// ListChatMessages sorts in Go after decoding: legacy rows mix integer and
// datetime timestamps, which Mongo orders by type before value.
func (s *MongoStore) ListChatMessages(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	q := bson.M{}
	if userID != "" {
		q["user_id"] = userID
	}
	var docs []chatDoc
	if err := s.findAll(ctx, CollectionChatHistory, q, &docs, nil); err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromChatDoc(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MongoStore) DeleteChatMessage(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, CollectionChatHistory, id)
}

// first aid rooms

func (s *MongoStore) CreateFirstAidRoom(ctx context.Context, room domain.FirstAidRoom) (domain.FirstAidRoom, error) {
	doc := toFirstAidDoc(room)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll(CollectionFirstAidRooms).InsertOne(ctx, doc); err != nil {
		return domain.FirstAidRoom{}, insertErr(err)
	}
	return fromFirstAidDoc(doc), nil
}

func (s *MongoStore) GetFirstAidRoom(ctx context.Context, department string) (domain.FirstAidRoom, bool, error) {
	var doc firstAidDoc
	found, err := s.findOne(ctx, CollectionFirstAidRooms, bson.M{"department": department}, &doc)
	if err != nil || !found {
		return domain.FirstAidRoom{}, false, err
	}
	return fromFirstAidDoc(doc), true, nil
}

func (s *MongoStore) ListFirstAidRooms(ctx context.Context) ([]domain.FirstAidRoom, error) {
	var docs []firstAidDoc
	if err := s.findAll(ctx, CollectionFirstAidRooms, bson.M{}, &docs, nil); err != nil {
		return nil, err
	}
	out := make([]domain.FirstAidRoom, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromFirstAidDoc(d))
	}
	return out, nil
}

func (s *MongoStore) UpdateFirstAidRoom(ctx context.Context, room domain.FirstAidRoom) (bool, error) {
	oid, ok := objectID(room.ID)
	if !ok {
		return false, nil
	}
	doc := toFirstAidDoc(room)
	doc.ID = oid
	res, err := s.coll(CollectionFirstAidRooms).ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, ErrDuplicate
		}
		return false, fmt.Errorf("replace first aid room: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeleteFirstAidRoom(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, CollectionFirstAidRooms, id)
}

func (s *MongoStore) Count(ctx context.Context, c Collection) (int64, error) {
	n, err := s.coll(c).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return n, nil
}

func (s *MongoStore) findOne(ctx context.Context, c Collection, filter any, out any) (bool, error) {
	err := s.coll(c).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s: %w", c, err)
	}
	return true, nil
}

func (s *MongoStore) findAll(ctx context.Context, c Collection, filter any, out any, opts *options.FindOptions) error {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cur, err := s.coll(c).Find(ctx, filter, findOpts...)
	if err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", c, err)
	}
	return nil
}

func (s *MongoStore) updateByID(ctx context.Context, c Collection, oid primitive.ObjectID, update any) (bool, error) {
	res, err := s.coll(c).UpdateByID(ctx, oid, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, ErrDuplicate
		}
		return false, fmt.Errorf("update %s: %w", c, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) deleteByID(ctx context.Context, c Collection, id string) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}
	res, err := s.coll(c).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", c, err)
	}
	return res.DeletedCount > 0, nil
}

func insertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("insert: %w", err)
}
