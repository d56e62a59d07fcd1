package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	mongoinfra "orghierarchy/src/infra/mongo"
)

const branchesCollection = "branches"

// MongoBranchRepository guarda cada branch como um documento com a lista childIds;
// o fecho transitivo é resolvido com $graphLookup.
type MongoBranchRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoBranchRepository(db *mongo.Database) *MongoBranchRepository {
	return &MongoBranchRepository{
		collection: db.Collection(branchesCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *MongoBranchRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().
				SetName("uq_org_name_alive").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "isDeleted", Value: false}}),
		},
		{
			Keys:    bson.D{{Key: "organizationId", Value: 1}, {Key: "isRoot", Value: 1}, {Key: "isDeleted", Value: 1}},
			Options: options.Index().SetName("idx_org_roots"),
		},
		{
			Keys:    bson.D{{Key: "childIds", Value: 1}},
			Options: options.Index().SetName("idx_child_ids"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("MongoBranchRepository.EnsureIndexes - failed to create indexes: %w", err)
	}

	return nil
}

func (r *MongoBranchRepository) Insert(ctx context.Context, branch *entities.Branch) error {
	doc := *branch
	if doc.ChildIDs == nil {
		// $addToSet falha em campo null
		doc.ChildIDs = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongoinfra.IsDuplicateKey(err) {
			return fmt.Errorf("MongoBranchRepository.Insert - name %q: %w", branch.Name, domain.ErrBranchAlreadyExists)
		}
		return fmt.Errorf("MongoBranchRepository.Insert - failed to insert branch: %w", err)
	}

	return nil
}

func (r *MongoBranchRepository) Update(ctx context.Context, branch *entities.Branch) error {
	set := bson.M{
		"name":      branch.Name,
		"isRoot":    branch.IsRoot,
		"address":   branch.Address,
		"updatedAt": branch.UpdatedAt,
	}
	update := bson.M{"$set": set}

	if branch.ParentID != nil {
		set["parentId"] = *branch.ParentID
	} else {
		update["$unset"] = bson.M{"parentId": ""}
	}

	result, err := r.collection.UpdateOne(ctx, aliveScope(branch.OrganizationID, branch.ID), update)
	if err != nil {
		if mongoinfra.IsDuplicateKey(err) {
			return fmt.Errorf("MongoBranchRepository.Update - name %q: %w", branch.Name, domain.ErrBranchAlreadyExists)
		}
		return fmt.Errorf("MongoBranchRepository.Update - failed to update branch: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("MongoBranchRepository.Update - id %s: %w", branch.ID, domain.ErrBranchNotFound)
	}

	return nil
}

func (r *MongoBranchRepository) FindOne(ctx context.Context, filter domain.BranchFilter, id string) (*entities.Branch, error) {
	query := filterDocument(filter)
	query["_id"] = id

	var branch entities.Branch
	if err := r.collection.FindOne(ctx, query).Decode(&branch); err != nil {
		if mongoinfra.IsNoDocuments(err) {
			return nil, fmt.Errorf("MongoBranchRepository.FindOne - id %s: %w", id, domain.ErrBranchNotFound)
		}
		return nil, fmt.Errorf("MongoBranchRepository.FindOne - failed to decode branch: %w", err)
	}

	return &branch, nil
}

func (r *MongoBranchRepository) FindByName(ctx context.Context, organizationID string, name string) (*entities.Branch, error) {
	query := bson.M{"organizationId": organizationID, "name": name, "isDeleted": false}

	var branch entities.Branch
	if err := r.collection.FindOne(ctx, query).Decode(&branch); err != nil {
		if mongoinfra.IsNoDocuments(err) {
			return nil, fmt.Errorf("MongoBranchRepository.FindByName - name %q: %w", name, domain.ErrBranchNotFound)
		}
		return nil, fmt.Errorf("MongoBranchRepository.FindByName - failed to decode branch: %w", err)
	}

	return &branch, nil
}

func (r *MongoBranchRepository) Find(ctx context.Context, filter domain.BranchFilter, page Page) ([]entities.Branch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("MongoBranchRepository.Find - query failed: %w", err)
	}

	branches := make([]entities.Branch, 0)
	if err := cursor.All(ctx, &branches); err != nil {
		return nil, fmt.Errorf("MongoBranchRepository.Find - failed to decode branches: %w", err)
	}

	return branches, nil
}

func (r *MongoBranchRepository) Count(ctx context.Context, filter domain.BranchFilter) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("MongoBranchRepository.Count - query failed: %w", err)
	}
	return total, nil
}

type subtreeDocument struct {
	entities.Branch `bson:",inline"`
	Descendants     []entities.Branch `bson:"descendants"`
}

// Subtree usa $graphLookup, que já deduplica e termina em ciclos.
// restrictSearchWithMatch impede a expansão através de nós filtrados.
func (r *MongoBranchRepository) Subtree(ctx context.Context, filter domain.BranchFilter, rootID string, limit int) ([]entities.Branch, error) {
	filter.RootsOnly = false

	match := filterDocument(filter)
	match["_id"] = rootID

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$graphLookup", Value: bson.D{
			{Key: "from", Value: branchesCollection},
			{Key: "startWith", Value: "$childIds"},
			{Key: "connectFromField", Value: "childIds"},
			{Key: "connectToField", Value: "_id"},
			{Key: "as", Value: "descendants"},
			{Key: "restrictSearchWithMatch", Value: filterDocument(filter)},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("MongoBranchRepository.Subtree - aggregation failed: %w", err)
	}

	var docs []subtreeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("MongoBranchRepository.Subtree - failed to decode closure: %w", err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("MongoBranchRepository.Subtree - root %s: %w", rootID, domain.ErrBranchNotFound)
	}

	root := docs[0]
	closure := make([]entities.Branch, 0, len(root.Descendants)+1)
	closure = append(closure, root.Branch)

	// A raiz volta em descendants quando algum descendente a referencia (ciclo)
	for _, d := range root.Descendants {
		if d.ID == rootID {
			continue
		}
		closure = append(closure, d)
	}

	if limit > 0 && len(closure) > limit {
		return nil, fmt.Errorf("MongoBranchRepository.Subtree - root %s: %w", rootID, domain.ErrClosureTooLarge)
	}

	return closure, nil
}

func (r *MongoBranchRepository) AddChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	update := bson.M{
		"$addToSet": bson.M{"childIds": childID},
		"$set":      bson.M{"updatedAt": r.now()},
	}

	result, err := r.collection.UpdateOne(ctx, aliveScope(organizationID, parentID), update)
	if err != nil {
		return fmt.Errorf("MongoBranchRepository.AddChild - update failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("MongoBranchRepository.AddChild - parent %s: %w", parentID, domain.ErrBranchNotFound)
	}

	return nil
}

func (r *MongoBranchRepository) RemoveChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	update := bson.M{
		"$pull": bson.M{"childIds": childID},
		"$set":  bson.M{"updatedAt": r.now()},
	}

	query := bson.M{"_id": parentID, "organizationId": organizationID, "childIds": childID}
	if _, err := r.collection.UpdateOne(ctx, query, update); err != nil {
		return fmt.Errorf("MongoBranchRepository.RemoveChild - update failed: %w", err)
	}

	return nil
}

func (r *MongoBranchRepository) SetActive(ctx context.Context, organizationID string, id string, active bool) (*entities.Branch, error) {
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": r.now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var branch entities.Branch
	err := r.collection.FindOneAndUpdate(ctx, aliveScope(organizationID, id), update, opts).Decode(&branch)
	if err != nil {
		if mongoinfra.IsNoDocuments(err) {
			return nil, fmt.Errorf("MongoBranchRepository.SetActive - id %s: %w", id, domain.ErrBranchNotFound)
		}
		return nil, fmt.Errorf("MongoBranchRepository.SetActive - update failed: %w", err)
	}

	return &branch, nil
}

func (r *MongoBranchRepository) SoftDelete(ctx context.Context, organizationID string, id string) error {
	now := r.now()
	update := bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": now, "updatedAt": now}}

	result, err := r.collection.UpdateOne(ctx, aliveScope(organizationID, id), update)
	if err != nil {
		return fmt.Errorf("MongoBranchRepository.SoftDelete - update failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("MongoBranchRepository.SoftDelete - id %s: %w", id, domain.ErrBranchNotFound)
	}

	return nil
}

func (r *MongoBranchRepository) HealthCheck(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

func aliveScope(organizationID string, id string) bson.M {
	return bson.M{"_id": id, "organizationId": organizationID, "isDeleted": false}
}

func filterDocument(filter domain.BranchFilter) bson.M {
	doc := bson.M{
		"organizationId": filter.OrganizationID,
		"isDeleted":      false,
	}

	if filter.RootsOnly {
		doc["isRoot"] = true
	}

	if filter.RestrictNames {
		names := filter.AllowedNames
		if names == nil {
			names = []string{}
		}
		doc["name"] = bson.M{"$in": names}
	}

	return doc
}
