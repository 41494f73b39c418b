// internal/app/features/connections/handler.go
package connections

import (
	"errors"
	"time"

	uierrors "github.com/dalemusser/melange/internal/app/features/errors"
	anonconnectionstore "github.com/dalemusser/melange/internal/app/store/anonconnections"
	connectionstore "github.com/dalemusser/melange/internal/app/store/connections"
	"github.com/dalemusser/melange/internal/app/system/negotiation"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// inviteCookie remembers an opened invitation until the user is signed in
// and has a profile to claim it with.
const inviteCookie = "melange_invite"

// Handler serves connection negotiation between profiles and organizations.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	Negotiation *negotiation.Service

	anon         *anonconnectionstore.Store
	invites      *securecookie.SecureCookie
	secureCookie bool
	inviteTTL    time.Duration
}

// NewHandler builds the handler. cookieKey signs the invitation cookie.
func NewHandler(
	db *mongo.Database,
	errLog *uierrors.ErrorLogger,
	neg *negotiation.Service,
	cookieKey string,
	secure bool,
	logger *zap.Logger,
) *Handler {
	codec := securecookie.New([]byte(cookieKey), nil)
	codec.MaxAge(int(anonconnectionstore.DefaultTTL.Seconds()))
	return &Handler{
		DB:           db,
		Log:          logger,
		ErrLog:       errLog,
		Negotiation:  neg,
		anon:         anonconnectionstore.New(db, anonconnectionstore.DefaultTTL),
		invites:      codec,
		secureCookie: secure,
		inviteTTL:    anonconnectionstore.DefaultTTL,
	}
}

// userError maps negotiation and store failures to client errors. Other
// errors pass through and become a logged 500.
func userError(err error) error {
	switch {
	case errors.Is(err, connectionstore.ErrNotFound):
		return uierrors.NotFound("Connection not found.")
	case errors.Is(err, connectionstore.ErrConnectionExists):
		return uierrors.Conflict("A connection with this organization already exists.")
	case errors.Is(err, connectionstore.ErrStale):
		return uierrors.Conflict("The connection changed while you were editing it. Reload and try again.")
	case errors.Is(err, negotiation.ErrIneligible):
		return uierrors.BadRequest("Role change not allowed: " + err.Error())
	case errors.Is(err, negotiation.ErrInvalidRole):
		return uierrors.BadRequest("Invalid role for this side of the connection.")
	case errors.Is(err, negotiation.ErrEmptyMessage):
		return uierrors.BadRequest("Message is empty.")
	case errors.Is(err, negotiation.ErrWrongProgram):
		return uierrors.Conflict("This invitation belongs to another program.")
	case errors.Is(err, anonconnectionstore.ErrNotFound):
		return uierrors.NotFound("Invitation not found or expired.")
	}
	return err
}
