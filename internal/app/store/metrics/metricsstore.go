package metricsstore

import (
	"context"

	"github.com/dalemusser/melange/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProgramCounts is the set of totals shown on a program's admin dashboard.
type ProgramCounts struct {
	Organizations map[string]int64 `json:"organizations"` // by status
	Profiles      int64            `json:"profiles"`
	Mentors       int64            `json:"mentors"`
	OrgAdmins     int64            `json:"org_admins"`
	Students      int64            `json:"students"`
	Winners       int64            `json:"winners"`
	Proposals     map[string]int64 `json:"proposals"` // by status
	Projects      int64            `json:"projects"`
	Conversations int64            `json:"conversations"`
}

// FetchProgramCounts returns the high-level counts used by dashboards.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchProgramCounts(ctx context.Context, db *mongo.Database, programID primitive.ObjectID) ProgramCounts {
	out := ProgramCounts{
		Organizations: groupByStatus(ctx, db.Collection("organizations"), programID),
		Proposals:     groupByStatus(ctx, db.Collection("proposals"), programID),
	}

	count := func(coll string, extra bson.M) int64 {
		f := bson.M{"program_id": programID}
		for k, v := range extra {
			f[k] = v
		}
		n, err := db.Collection(coll).CountDocuments(ctx, f)
		if err != nil {
			return 0
		}
		return n
	}

	out.Profiles = count("profiles", nil)
	out.Mentors = count("profiles", bson.M{"is_mentor": true})
	out.OrgAdmins = count("profiles", bson.M{"is_org_admin": true})
	out.Students = count("profiles", bson.M{"is_student": true})
	out.Winners = count("profiles", bson.M{"is_student": true, "student.is_winner": true})
	out.Projects = count("projects", bson.M{"status": bson.M{"$ne": models.ProjectWithdrawn}})
	out.Conversations = count("conversations", nil)
	return out
}

func groupByStatus(ctx context.Context, c *mongo.Collection, programID primitive.ObjectID) map[string]int64 {
	out := map[string]int64{}
	cur, err := c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"program_id": programID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if cur.Decode(&row) == nil {
			out[row.Status] = row.N
		}
	}
	return out
}
