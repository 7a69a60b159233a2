package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/audit"
	"github.com/latticebi/lattice/pkg/contextkeys"
	"github.com/latticebi/lattice/pkg/grants"
	"github.com/latticebi/lattice/pkg/ownership"
	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/schema"
	"github.com/latticebi/lattice/pkg/shares"
	"github.com/latticebi/lattice/pkg/tenancy"
)

// Engine is the access decision engine. It is safe for concurrent use;
// every Decide call opens its own read transaction so grants, memberships
// and shares are observed in one snapshot.
type Engine struct {
	db      *sql.DB
	catalog *permissions.Catalog
	grants  *grants.Resolver
	owners  *ownership.Resolver
	shares  *shares.Resolver
	audit   audit.Logger
	log     *logrus.Logger
	metrics *Metrics
}

// NewEngine creates a decision engine. The audit logger, application
// logger and metrics may be nil; auditing is then disabled and logging
// falls back to the standard logrus logger.
func NewEngine(db *sql.DB, catalog *permissions.Catalog, auditLog audit.Logger, log *logrus.Logger, metrics *Metrics) *Engine {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		db:      db,
		catalog: catalog,
		grants:  grants.NewResolver(catalog),
		owners:  ownership.NewResolver(),
		shares:  shares.NewResolver(db),
		audit:   auditLog,
		log:     log,
		metrics: metrics,
	}
}

// Decide answers whether the identity may perform action on the resource.
// Unknown actions and malformed ownership descriptors error loudly; they
// indicate bugs upstream, never a quiet deny. A denial is a normal result,
// not an error.
func (e *Engine) Decide(ctx context.Context, ident Identity, action permissions.ID, resource Resource) (Decision, error) {
	start := time.Now()

	if err := e.catalog.Validate(action); err != nil {
		return Decision{}, err
	}
	if err := resource.Owner.Validate(); err != nil {
		return Decision{}, err
	}

	decision, err := e.decide(ctx, ident, action, resource)

	outcome := audit.OutcomeError
	cause := ""
	if err == nil {
		cause = string(decision.Cause)
		if decision.Allowed {
			outcome = audit.OutcomeAllow
		} else {
			outcome = audit.OutcomeDeny
		}
	}

	if e.metrics != nil {
		e.metrics.DecisionsTotal.WithLabelValues(string(outcome), cause).Inc()
		e.metrics.DecisionDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
	}

	userID := ident.UserID
	resourceID := resource.ID
	if auditErr := e.audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeDecision,
		UserID:       &userID,
		Action:       string(action),
		ResourceKind: string(resource.Kind),
		ResourceID:   &resourceID,
		Outcome:      outcome,
		Cause:        cause,
		RequestID:    contextkeys.GetRequestID(ctx),
	}); auditErr != nil {
		e.log.WithError(auditErr).Warn("failed to record access decision audit event")
	}

	return decision, err
}

func (e *Engine) decide(ctx context.Context, ident Identity, action permissions.ID, resource Resource) (Decision, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to open decision snapshot: %w", err)
	}
	defer tx.Rollback()

	tenants := tenancy.NewStore(tx)

	isAdmin := ident.IsPlatformAdmin
	if !isAdmin && ident.UserID != 0 {
		user, err := tenants.GetUser(ctx, ident.UserID)
		if err != nil && !errors.Is(err, tenancy.ErrUserNotFound) {
			return Decision{}, err
		}
		if user != nil && user.Active && user.PlatformAdmin {
			isAdmin = true
		}
	}
	if isAdmin {
		return allow(action, CausePlatformAdmin), nil
	}

	scope, scopeOK, err := e.resolveScope(ctx, tx, resource.Owner, ident)
	if err != nil {
		return Decision{}, err
	}
	if !scopeOK {
		// The owning group or company no longer exists; the resource is
		// orphaned and out of everyone's view.
		return deny(action, CauseNotVisible), nil
	}

	req := ownership.Requester{UserID: ident.UserID, ClientID: ident.ClientID, CompanyID: ident.CompanyID}
	visible, err := e.owners.Visible(ctx, tx, resource.Owner, req)
	if err != nil {
		return Decision{}, err
	}

	perms, err := e.grants.EffectivePermissions(ctx, tx, ident.UserID, scope)
	if err != nil {
		return Decision{}, err
	}

	// A non-member in the group's owning company sees group-owned resources
	// when a grant delegates that visibility.
	if !visible && resource.Owner.Kind == ownership.OwnerGroup &&
		scope.IsCompany() && ident.CompanyID == scope.CompanyID &&
		perms.Has(permissions.GroupsViewResources) {
		visible = true
	}

	covered, err := e.shareCovers(ctx, tx, ident, action, resource)
	if err != nil {
		return Decision{}, err
	}

	if visible && perms.Has(action) {
		return allow(action, CauseGranted), nil
	}
	if covered {
		return allow(action, CauseShared), nil
	}
	if !visible {
		return deny(action, CauseNotVisible), nil
	}
	return deny(action, CauseUnpermitted), nil
}

// resolveScope maps a resource's owner to the tenancy scope grants are
// evaluated in. A false second return means the owning tenant row is gone.
func (e *Engine) resolveScope(ctx context.Context, tx schema.DBTX, desc ownership.Descriptor, ident Identity) (tenancy.Scope, bool, error) {
	tenants := tenancy.NewStore(tx)

	switch desc.Kind {
	case ownership.OwnerCompany:
		company, err := tenants.GetCompany(ctx, desc.CompanyID)
		if errors.Is(err, tenancy.ErrCompanyNotFound) {
			return tenancy.Scope{}, false, nil
		}
		if err != nil {
			return tenancy.Scope{}, false, err
		}
		return tenancy.CompanyScope(company.ClientID, company.ID), true, nil

	case ownership.OwnerGroup:
		companyID, ok, err := e.owners.OwningGroupCompany(ctx, tx, desc)
		if err != nil {
			return tenancy.Scope{}, false, err
		}
		if !ok {
			return tenancy.Scope{}, false, nil
		}
		company, err := tenants.GetCompany(ctx, companyID)
		if errors.Is(err, tenancy.ErrCompanyNotFound) {
			return tenancy.Scope{}, false, nil
		}
		if err != nil {
			return tenancy.Scope{}, false, err
		}
		return tenancy.CompanyScope(company.ClientID, company.ID), true, nil

	case ownership.OwnerClient:
		if ident.CompanyID != 0 {
			return tenancy.CompanyScope(desc.ClientID, ident.CompanyID), true, nil
		}
		return tenancy.ClientScope(desc.ClientID), true, nil

	default:
		return tenancy.Scope{}, false, fmt.Errorf("%w: unhandled owner kind %q", ownership.ErrInvalidDescriptor, desc.Kind)
	}
}

// shareCovers reports whether an explicit share satisfies the action.
// Shares only cover actions in the resource's own permission category;
// view-class actions are satisfied by View or Edit, everything else needs
// Edit.
func (e *Engine) shareCovers(ctx context.Context, tx schema.DBTX, ident Identity, action permissions.ID, resource Resource) (bool, error) {
	target, shareable := resource.shareTarget()
	if !shareable || ident.UserID == 0 {
		return false, nil
	}

	category, err := e.catalog.CategoryOf(action)
	if err != nil {
		return false, err
	}
	if category != resource.category() {
		return false, nil
	}

	level, err := e.shares.AccessLevel(ctx, tx, ident.UserID, target, resource.ID)
	if err != nil {
		return false, err
	}

	required := shares.LevelEdit
	if e.catalog.IsReadOnly(action) {
		required = shares.LevelView
	}
	return level >= required, nil
}

// EffectivePermissions exposes the grant resolver for UI permission
// summaries, read inside one snapshot like Decide.
func (e *Engine) EffectivePermissions(ctx context.Context, userID int64, scope tenancy.Scope) (grants.Set, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open permissions snapshot: %w", err)
	}
	defer tx.Rollback()

	return e.grants.EffectivePermissions(ctx, tx, userID, scope)
}
