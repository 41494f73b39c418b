// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup (and by `melangectl indexes`). Each
collection set is idempotent. Errors are aggregated so every problem is
visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", usersIndexes()},
		{"programs", programsIndexes()},
		{"organizations", organizationsIndexes()},
		{"profiles", profilesIndexes()},
		{"connections", connectionsIndexes()},
		{"connection_messages", connectionMessagesIndexes()},
		{"anonymous_connections", anonymousConnectionsIndexes()},
		{"proposals", proposalsIndexes()},
		{"projects", projectsIndexes()},
		{"proposal_duplicates", duplicatesIndexes()},
		{"proposal_duplicates_status", duplicatesStatusIndexes()},
		{"org_tasks", orgTasksIndexes()},
		{"conversations", conversationsIndexes()},
		{"conversation_users", conversationUsersIndexes()},
		{"messages", messagesIndexes()},
		{"tasks", tasksIndexes()},
		{"audit_events", auditIndexes()},
		{"oauth_states", oauthStateIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate detector (works across vendors).
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// ensureIndexSet creates missing indexes. An index with the same keys but a
// different name or uniqueness is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listIndexes(ctx, coll)

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if boolVal(unique) == boolVal(ex.Unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			zap.L().Info("replacing index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.Bool("unique", boolVal(unique)))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolVal(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(unique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func idx(name string, keys ...string) mongo.IndexModel {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, "-") {
			d = append(d, bson.E{Key: k[1:], Value: -1})
		} else {
			d = append(d, bson.E{Key: k, Value: 1})
		}
	}
	return mongo.IndexModel{Keys: d, Options: options.Index().SetName(name)}
}

func uniq(name string, keys ...string) mongo.IndexModel {
	m := idx(name, keys...)
	m.Options.SetUnique(true)
	return m
}

func ttl(name, field string) mongo.IndexModel {
	m := idx(name, field)
	m.Options.SetExpireAfterSeconds(0)
	return m
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_users_loginidci", "login_id_ci"),
		idx("idx_users_email", "email"),
		idx("idx_users_auth_return_id", "auth_return_id"),
		idx("idx_users_role_status_fullnameci_id", "role", "status", "full_name_ci", "_id"),
	}
}

func programsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_programs_slug", "slug"),
	}
}

func organizationsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// org_id is the slug; unique within a program.
		uniq("uniq_orgs_program_orgid", "program_id", "org_id"),
		// Keyset paging over a program's orgs (batch jobs and lists).
		idx("idx_orgs_program_nameci_id", "program_id", "name_ci", "_id"),
		idx("idx_orgs_program_status_id", "program_id", "status", "_id"),
	}
}

func profilesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_profiles_user_program", "user_id", "program_id"),
		idx("idx_profiles_program_orgadminfor", "program_id", "org_admin_for"),
		idx("idx_profiles_program_mentorfor", "program_id", "mentor_for"),
		idx("idx_profiles_program_student", "program_id", "is_student"),
	}
}

func connectionsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_connections_profile_org", "profile_id", "organization_id"),
		idx("idx_connections_user_modified", "user_id", "-last_modified"),
		idx("idx_connections_org_modified", "organization_id", "-last_modified"),
	}
}

func connectionMessagesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_connmsgs_connection_created", "connection_id", "created"),
	}
}

func anonymousConnectionsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_anonconn_token", "token"),
		ttl("ttl_anonconn_expiration", "expiration_date"),
	}
}

func proposalsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_proposals_org_status", "organization_id", "status", "_id"),
		idx("idx_proposals_program_student", "program_id", "student_profile_id"),
		idx("idx_proposals_org_accept", "organization_id", "accept_as_project"),
		idx("idx_proposals_mentors", "organization_id", "mentor_ids"),
	}
}

func projectsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_projects_proposal", "proposal_id"),
		idx("idx_projects_program_org", "program_id", "organization_id", "_id"),
		idx("idx_projects_mentors", "organization_id", "mentor_ids"),
	}
}

func duplicatesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_dups_program_student", "program_id", "student_profile_id"),
		idx("idx_dups_program_orgs", "program_id", "organization_ids"),
	}
}

func duplicatesStatusIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_dupstatus_program", "program_id"),
	}
}

func orgTasksIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_orgtasks_org_status_titleci_id", "organization_id", "status", "title_ci", "_id"),
		idx("idx_orgtasks_mentors", "organization_id", "mentor_ids"),
	}
}

func conversationsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_convs_program", "program_id", "auto_update_users"),
	}
}

func conversationUsersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_convusers_conv_user", "conversation_id", "user_id"),
		idx("idx_convusers_user_program", "user_id", "program_id"),
	}
}

func messagesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_messages_conv_sent_id", "conversation_id", "sent_on", "_id"),
	}
}

func tasksIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Dispatcher lease scan.
		idx("idx_tasks_status_eta", "status", "eta"),
		idx("idx_tasks_name_status", "name", "status"),
	}
}

func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_audit_timestamp", "-timestamp"),
		idx("idx_audit_program_timestamp", "program_id", "-timestamp"),
		idx("idx_audit_user_timestamp", "user_id", "-timestamp"),
		idx("idx_audit_category_type_timestamp", "category", "event_type", "-timestamp"),
	}
}

func oauthStateIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_oauthstate_state", "state"),
		ttl("ttl_oauthstate_expires", "expires_at"),
	}
}
