// Package negotiation persists connection role changes: it runs the pure
// rules from domain/roles against stored connections, checks that role
// drops are allowed, keeps the profile's role lists in step, and queues the
// resulting notifications.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/melange/internal/app/policy/rolepolicy"
	anonconnectionstore "github.com/dalemusser/melange/internal/app/store/anonconnections"
	connectionmessagestore "github.com/dalemusser/melange/internal/app/store/connectionmessages"
	connectionstore "github.com/dalemusser/melange/internal/app/store/connections"
	organizationstore "github.com/dalemusser/melange/internal/app/store/organizations"
	profilestore "github.com/dalemusser/melange/internal/app/store/profiles"
	programstore "github.com/dalemusser/melange/internal/app/store/programs"
	"github.com/dalemusser/melange/internal/app/system/auditlog"
	"github.com/dalemusser/melange/internal/app/system/htmlsanitize"
	"github.com/dalemusser/melange/internal/app/system/mailer"
	"github.com/dalemusser/melange/internal/app/system/metrics"
	"github.com/dalemusser/melange/internal/app/system/taskqueue"
	"github.com/dalemusser/melange/internal/app/system/txn"
	"github.com/dalemusser/melange/internal/domain/models"
	"github.com/dalemusser/melange/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sides of a connection.
const (
	SideUser = "user"
	SideOrg  = "org"
)

var (
	// ErrIneligible is returned when a role drop is not allowed. The
	// wrapped message says why.
	ErrIneligible = errors.New("not eligible")
	// ErrInvalidRole is returned for a role value the side may not pick.
	ErrInvalidRole = errors.New("invalid role")
	// ErrEmptyMessage is returned when a message is empty after sanitizing.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrWrongProgram is returned when an invitation is claimed with a
	// profile from another program.
	ErrWrongProgram = errors.New("invitation belongs to another program")
)

// Config holds the settings that shape notifications.
type Config struct {
	// BaseURL prefixes links in mail.
	BaseURL string
}

// Service applies connection changes.
type Service struct {
	db      *mongo.Database
	log     *zap.Logger
	tasks   taskqueue.Enqueuer
	audit   *auditlog.Logger
	metrics *metrics.Metrics
	anon    *anonconnectionstore.Store
	cfg     Config
}

// New creates a Service. audit and m may be nil.
func New(db *mongo.Database, logger *zap.Logger, tasks taskqueue.Enqueuer, audit *auditlog.Logger, m *metrics.Metrics, anon *anonconnectionstore.Store, cfg Config) *Service {
	if anon == nil {
		anon = anonconnectionstore.New(db, 0)
	}
	return &Service{db: db, log: logger, tasks: tasks, audit: audit, metrics: m, anon: anon, cfg: cfg}
}

// Result describes what a role selection did.
type Result struct {
	Connection models.Connection
	// Changed is false when the selected role was already stored.
	Changed    bool
	Message    *models.ConnectionMessage
	Assignment profilestore.Assignment
}

// UserSelects records the connection's user picking newUserRole.
func (s *Service) UserSelects(ctx context.Context, connectionID, actorID primitive.ObjectID, newUserRole string) (Result, error) {
	return s.selectRole(ctx, connectionID, actorID, SideUser, func(cur roles.State) (roles.Transition, error) {
		return roles.UserSelects(cur, newUserRole)
	})
}

// OrgSelects records an org admin (actorName) picking newOrgRole.
func (s *Service) OrgSelects(ctx context.Context, connectionID, actorID primitive.ObjectID, actorName, newOrgRole string) (Result, error) {
	return s.selectRole(ctx, connectionID, actorID, SideOrg, func(cur roles.State) (roles.Transition, error) {
		return roles.OrgSelects(cur, newOrgRole, actorName)
	})
}

func (s *Service) selectRole(ctx context.Context, connectionID, actorID primitive.ObjectID, side string, pick func(roles.State) (roles.Transition, error)) (Result, error) {
	var (
		res     Result
		trans   roles.Transition
		profile models.Profile
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res = Result{}
		conns := connectionstore.New(s.db)
		conn, err := conns.GetByID(ctx, connectionID)
		if err != nil {
			return err
		}
		res.Connection = conn

		trans, err = pick(roles.State{UserRole: conn.UserRole, OrgRole: conn.OrgRole})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRole, err)
		}
		if !trans.Changed {
			return nil
		}

		profiles := profilestore.New(s.db)
		profile, err = profiles.GetByID(ctx, conn.ProfileID)
		if err != nil {
			return err
		}
		if err := checkEligible(ctx, s.db, profile, conn.OrganizationID, trans.Requirement()); err != nil {
			return err
		}

		updated, err := conns.UpdateRoles(ctx, conn.ID, trans.From, trans.To, trans.SeenByUser, trans.SeenByOrg)
		if err != nil {
			return err
		}
		msg, err := connectionmessagestore.New(s.db).AddAuto(ctx, conn.ID, trans.Message)
		if err != nil {
			return err
		}
		asg, err := profiles.Assign(ctx, profile.ID, conn.OrganizationID, trans.After())
		if err != nil {
			return err
		}

		res = Result{Connection: updated, Changed: true, Message: &msg, Assignment: asg}
		return nil
	})
	if err != nil || !res.Changed {
		return res, err
	}

	from, to := trans.From.UserRole, trans.To.UserRole
	if side == SideOrg {
		from, to = trans.From.OrgRole, trans.To.OrgRole
	}
	s.audit.ConnectionRoleChanged(ctx, actorID, res.Connection, side, from, to)
	s.metrics.RoleChanged(side)
	s.afterAssignment(ctx, res.Connection, res.Assignment)
	return res, nil
}

// checkEligible enforces the requirement a role drop carries.
func checkEligible(ctx context.Context, db *mongo.Database, profile models.Profile, orgID primitive.ObjectID, req roles.Requirement) error {
	var (
		ok     bool
		err    error
		reason string
	)
	switch req {
	case roles.NoRoleEligible:
		ok, err = rolepolicy.IsNoRoleEligibleForOrg(ctx, db, profile, orgID)
		reason = "the profile cannot give up its roles for this organization; it is the only organization administrator or still mentors proposals, projects or tasks"
	case roles.MentorRoleEligible:
		ok, err = rolepolicy.IsMentorRoleEligibleForOrg(ctx, db, profile, orgID)
		reason = "the profile is the only organization administrator"
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrIneligible, reason)
	}
	return nil
}

// afterAssignment queues the notifications that follow a profile role
// change. Failures are logged; the role change itself is already stored.
func (s *Service) afterAssignment(ctx context.Context, conn models.Connection, asg profilestore.Assignment) {
	if asg.BecameMentor() {
		if err := s.enqueueMentorWelcome(ctx, asg.After, conn.OrganizationID); err != nil {
			s.log.Warn("mentor welcome mail not queued",
				zap.String("profile_id", asg.After.ID.Hex()), zap.Error(err))
		}
	}
	if asg.Before.IsMentorFor(conn.OrganizationID) != asg.After.IsMentorFor(conn.OrganizationID) ||
		asg.Before.IsOrgAdminFor(conn.OrganizationID) != asg.After.IsOrgAdminFor(conn.OrganizationID) {
		if err := taskqueue.EnqueueRefreshUser(ctx, s.tasks, conn.ProgramID, conn.UserID); err != nil {
			s.log.Warn("conversation refresh not queued",
				zap.String("user_id", conn.UserID.Hex()), zap.Error(err))
		}
	}
}

func (s *Service) enqueueMentorWelcome(ctx context.Context, profile models.Profile, orgID primitive.ObjectID) error {
	prog, err := programstore.New(s.db).GetByID(ctx, profile.ProgramID)
	if err != nil {
		return err
	}
	org, err := organizationstore.New(s.db).GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	e := mailer.BuildMentorWelcome(prog.Messages.MentorWelcome, mailer.MessageData{
		Name:         profile.PublicName,
		Program:      prog.Name,
		Organization: org.Name,
		URL:          s.cfg.BaseURL,
	})
	e.To = profile.Email
	return taskqueue.EnqueueMail(ctx, s.tasks, e)
}

// StartAsUser opens a connection in which the profile requests a role from
// org. An optional message is stored after the auto-generated one.
func (s *Service) StartAsUser(ctx context.Context, profile models.Profile, org models.Organization, message string) (models.Connection, error) {
	conn := models.Connection{
		ProfileID:      profile.ID,
		UserID:         profile.UserID,
		ProgramID:      profile.ProgramID,
		OrganizationID: org.ID,
		UserRole:       roles.Role,
		OrgRole:        roles.NoRole,
		SeenByUser:     true,
		SeenByOrg:      false,
	}
	return s.start(ctx, conn, profile.UserID, SideUser, roles.MsgUserRequestsRole, message)
}

// StartAsOrg opens a connection in which org, through the admin actorID
// named actorName, offers orgRole to the profile.
func (s *Service) StartAsOrg(ctx context.Context, actorID primitive.ObjectID, actorName string, org models.Organization, profile models.Profile, orgRole, message string) (models.Connection, error) {
	if !roles.ValidOrgRole(orgRole) {
		return models.Connection{}, fmt.Errorf("%w: %q", ErrInvalidRole, orgRole)
	}
	conn := models.Connection{
		ProfileID:      profile.ID,
		UserID:         profile.UserID,
		ProgramID:      profile.ProgramID,
		OrganizationID: org.ID,
		UserRole:       roles.NoRole,
		OrgRole:        orgRole,
		SeenByUser:     false,
		SeenByOrg:      true,
	}
	var auto string
	if orgRole != roles.NoRole {
		t, _ := roles.OrgSelects(roles.State{UserRole: roles.NoRole, OrgRole: roles.NoRole}, orgRole, actorName)
		auto = t.Message
	}
	return s.start(ctx, conn, actorID, SideOrg, auto, message)
}

func (s *Service) start(ctx context.Context, conn models.Connection, actorID primitive.ObjectID, side, auto, message string) (models.Connection, error) {
	message = htmlsanitize.Message(message)
	var out models.Connection
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		created, err := connectionstore.New(s.db).Create(ctx, conn)
		if err != nil {
			return err
		}
		msgs := connectionmessagestore.New(s.db)
		if auto != "" {
			if _, err := msgs.AddAuto(ctx, created.ID, auto); err != nil {
				return err
			}
		}
		if message != "" {
			if _, err := msgs.AddUserMessage(ctx, created.ID, actorID, message); err != nil {
				return err
			}
		}
		out = created
		return nil
	})
	if err != nil {
		return models.Connection{}, err
	}
	s.audit.ConnectionStarted(ctx, actorID, out, side)
	return out, nil
}

// StartAnonymous invites email to org with orgRole and queues the
// invitation mail.
func (s *Service) StartAnonymous(ctx context.Context, actorID primitive.ObjectID, org models.Organization, email, orgRole string) (models.AnonymousConnection, error) {
	if !roles.ValidOrgRole(orgRole) || orgRole == roles.NoRole {
		return models.AnonymousConnection{}, fmt.Errorf("%w: %q", ErrInvalidRole, orgRole)
	}
	prog, err := programstore.New(s.db).GetByID(ctx, org.ProgramID)
	if err != nil {
		return models.AnonymousConnection{}, err
	}
	anon, err := s.anon.Create(ctx, org, email, orgRole)
	if err != nil {
		return models.AnonymousConnection{}, err
	}
	s.audit.AnonymousInvited(ctx, actorID, anon)

	e := mailer.BuildAnonymousInvite(mailer.MessageData{
		Program:      prog.Name,
		Organization: org.Name,
		URL:          s.cfg.BaseURL + "/connections/anonymous/" + anon.Token,
	})
	e.To = anon.Email
	if err := taskqueue.EnqueueMail(ctx, s.tasks, e); err != nil {
		return anon, err
	}
	return anon, nil
}

// ClaimAnonymous turns a valid invitation into a connection for profile
// and applies the offered role. Unknown or expired tokens return
// anonconnectionstore.ErrNotFound.
func (s *Service) ClaimAnonymous(ctx context.Context, token string, profile models.Profile) (models.Connection, error) {
	anon, err := s.anon.GetValid(ctx, token, time.Now().UTC())
	if err != nil {
		return models.Connection{}, err
	}
	if anon.ProgramID != profile.ProgramID {
		return models.Connection{}, ErrWrongProgram
	}

	var (
		out models.Connection
		asg profilestore.Assignment
	)
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		created, err := connectionstore.New(s.db).Create(ctx, models.Connection{
			ProfileID:      profile.ID,
			UserID:         profile.UserID,
			ProgramID:      profile.ProgramID,
			OrganizationID: anon.OrganizationID,
			UserRole:       roles.Role,
			OrgRole:        anon.OrgRole,
			SeenByUser:     true,
			SeenByOrg:      false,
		})
		if err != nil {
			return err
		}
		if _, err := connectionmessagestore.New(s.db).AddAuto(ctx, created.ID, roles.MsgUserRequestsRole); err != nil {
			return err
		}
		asg, err = profilestore.New(s.db).Assign(ctx, profile.ID, anon.OrganizationID, roles.Effective(created.UserRole, created.OrgRole))
		if err != nil {
			return err
		}
		if err := s.anon.Delete(ctx, anon.ID); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return models.Connection{}, err
	}

	s.audit.AnonymousClaimed(ctx, out)
	s.metrics.RoleChanged(SideUser)
	s.afterAssignment(ctx, out, asg)
	return out, nil
}

// MsgOrgApplication is the auto message on an applicant's founding
// connection.
const MsgOrgApplication = "Organization application submitted; applicant is organization administrator."

// Apply creates org in applying status for profile's program and makes the
// applicant its org admin through a connection agreed on both sides.
func (s *Service) Apply(ctx context.Context, profile models.Profile, org models.Organization) (models.Organization, models.Connection, error) {
	org.ProgramID = profile.ProgramID
	org.Status = models.OrgStatusApplying

	var (
		created models.Organization
		conn    models.Connection
		asg     profilestore.Assignment
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		o, err := organizationstore.New(s.db).Create(ctx, org)
		if err != nil {
			return err
		}
		c, err := connectionstore.New(s.db).Create(ctx, models.Connection{
			ProfileID:      profile.ID,
			UserID:         profile.UserID,
			ProgramID:      profile.ProgramID,
			OrganizationID: o.ID,
			UserRole:       roles.Role,
			OrgRole:        roles.OrgAdminRole,
			SeenByUser:     true,
			SeenByOrg:      true,
		})
		if err != nil {
			return err
		}
		if _, err := connectionmessagestore.New(s.db).AddAuto(ctx, c.ID, MsgOrgApplication); err != nil {
			return err
		}
		asg, err = profilestore.New(s.db).Assign(ctx, profile.ID, o.ID, roles.OrgAdmin)
		if err != nil {
			return err
		}
		created, conn = o, c
		return nil
	})
	if err != nil {
		return models.Organization{}, models.Connection{}, err
	}

	s.audit.ConnectionStarted(ctx, profile.UserID, conn, SideUser)
	s.metrics.RoleChanged(SideUser)
	s.afterAssignment(ctx, conn, asg)
	return created, conn, nil
}

// PostMessage stores a comment from one side and marks the connection
// unseen for the other side.
func (s *Service) PostMessage(ctx context.Context, connectionID, authorID primitive.ObjectID, side, content string) (models.ConnectionMessage, error) {
	content = htmlsanitize.Message(content)
	if content == "" {
		return models.ConnectionMessage{}, ErrEmptyMessage
	}
	var msg models.ConnectionMessage
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		conns := connectionstore.New(s.db)
		if _, err := conns.GetByID(ctx, connectionID); err != nil {
			return err
		}
		m, err := connectionmessagestore.New(s.db).AddUserMessage(ctx, connectionID, authorID, content)
		if err != nil {
			return err
		}
		if err := conns.Touch(ctx, connectionID, side == SideUser, side == SideOrg); err != nil {
			return err
		}
		msg = m
		return nil
	})
	return msg, err
}
