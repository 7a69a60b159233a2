// Package integrity periodically sweeps the authorization tables for rows
// that reference soft-deleted or missing tenancy records. Violations are
// reported through metrics and logs only; the sweep never mutates data.
package integrity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/latticebi/lattice/pkg/observability"
)

// Check names. Each is a metric label value, so the set is fixed.
const (
	CheckUserGrantDeadRole   = "user_grant_dead_role"
	CheckGroupGrantDeadRole  = "group_grant_dead_role"
	CheckUserGrantDeadUser   = "user_grant_dead_user"
	CheckGroupGrantDeadGroup = "group_grant_dead_group"
	CheckShareDeadUser       = "share_dead_user"
	CheckShareDeadGroup      = "share_dead_group"
	CheckAvailabilityOrphan  = "availability_orphan"
	CheckGrantScopeMismatch  = "grant_scope_mismatch"
	CheckGrantCompanyOutside = "grant_company_outside_client"
)

// countChecks are the violations expressible as a single COUNT query.
var countChecks = []struct {
	name  string
	query string
}{
	{
		name: CheckUserGrantDeadRole,
		query: `SELECT COUNT(1) FROM user_tenant_roles utr
			LEFT JOIN roles r ON r.id = utr.role_id AND r.deleted_at IS NULL
			WHERE r.id IS NULL`,
	},
	{
		name: CheckGroupGrantDeadRole,
		query: `SELECT COUNT(1) FROM group_tenant_roles gtr
			LEFT JOIN roles r ON r.id = gtr.role_id AND r.deleted_at IS NULL
			WHERE r.id IS NULL`,
	},
	{
		name: CheckUserGrantDeadUser,
		query: `SELECT COUNT(1) FROM user_tenant_roles utr
			LEFT JOIN users u ON u.id = utr.user_id AND u.deleted_at IS NULL
			WHERE u.id IS NULL`,
	},
	{
		name: CheckGroupGrantDeadGroup,
		query: `SELECT COUNT(1) FROM group_tenant_roles gtr
			LEFT JOIN groups g ON g.id = gtr.group_id AND g.deleted_at IS NULL
			WHERE g.id IS NULL`,
	},
	{
		name: CheckShareDeadUser,
		query: `SELECT COUNT(1) FROM shares s
			LEFT JOIN users u ON u.id = s.subject_id AND u.deleted_at IS NULL
			WHERE s.subject_kind = 'user' AND u.id IS NULL`,
	},
	{
		name: CheckShareDeadGroup,
		query: `SELECT COUNT(1) FROM shares s
			LEFT JOIN groups g ON g.id = s.subject_id AND g.deleted_at IS NULL
			WHERE s.subject_kind = 'group' AND g.id IS NULL`,
	},
	{
		name: CheckAvailabilityOrphan,
		query: `SELECT COUNT(1) FROM company_availability ca
			LEFT JOIN companies c ON c.id = ca.company_id AND c.client_id = ca.client_id AND c.deleted_at IS NULL
			WHERE c.id IS NULL`,
	},
	{
		// A grant whose scope kind disagrees with its role's scope kind.
		// The resolver excludes these defensively; the sweep makes them
		// visible so the bad writer can be found.
		name: CheckGrantScopeMismatch,
		query: `SELECT (
			SELECT COUNT(1) FROM user_tenant_roles utr
			JOIN roles r ON r.id = utr.role_id AND r.deleted_at IS NULL
			WHERE r.is_system = FALSE AND (
				(r.client_id IS NOT NULL AND utr.client_id IS NULL) OR
				(r.profile_id IS NOT NULL AND utr.profile_id IS NULL))
		) + (
			SELECT COUNT(1) FROM group_tenant_roles gtr
			JOIN roles r ON r.id = gtr.role_id AND r.deleted_at IS NULL
			WHERE r.is_system = FALSE AND (
				(r.client_id IS NOT NULL AND gtr.client_id IS NULL) OR
				(r.profile_id IS NOT NULL AND gtr.profile_id IS NULL))
		)`,
	},
}

// Report holds per-check violation counts from one sweep.
type Report map[string]int

// Total sums the violations across all checks.
func (r Report) Total() int {
	total := 0
	for _, n := range r {
		total += n
	}
	return total
}

// Sweeper runs integrity checks against the authorization tables.
type Sweeper struct {
	db      *sql.DB
	log     *logrus.Logger
	metrics *observability.Metrics
}

// NewSweeper creates a sweeper. Metrics may be nil.
func NewSweeper(db *sql.DB, log *logrus.Logger, metrics *observability.Metrics) *Sweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{db: db, log: log, metrics: metrics}
}

// Run executes every check once and reports the counts. On error the
// partial report is still returned so callers can see what completed.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	report := make(Report, len(countChecks)+1)

	for _, check := range countChecks {
		var count int
		if err := s.db.QueryRowContext(ctx, check.query).Scan(&count); err != nil {
			s.recordResult("error")
			return report, fmt.Errorf("integrity check %s: %w", check.name, err)
		}
		report[check.name] = count
	}

	outside, err := s.countGrantsOutsideClient(ctx)
	if err != nil {
		s.recordResult("error")
		return report, err
	}
	report[CheckGrantCompanyOutside] = outside

	s.publish(report)
	s.recordResult("ok")

	if total := report.Total(); total > 0 {
		s.log.WithField("violations", total).Warn("integrity sweep found violations")
	}
	return report, nil
}

// countGrantsOutsideClient finds client-scoped grants whose company_ids
// narrowing list names a company the client does not own. The lists are
// stored as JSON, so the comparison happens here rather than in SQL.
func (s *Sweeper) countGrantsOutsideClient(ctx context.Context) (int, error) {
	query := `
		SELECT client_id, company_ids FROM user_tenant_roles WHERE client_id IS NOT NULL
		UNION ALL
		SELECT client_id, company_ids FROM group_tenant_roles WHERE client_id IS NOT NULL
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("integrity check %s: %w", CheckGrantCompanyOutside, err)
	}
	defer rows.Close()

	type grantRow struct {
		clientID   int64
		companyIDs []int64
	}
	var grantRows []grantRow
	for rows.Next() {
		var row grantRow
		var companyIDsJSON string
		if err := rows.Scan(&row.clientID, &companyIDsJSON); err != nil {
			return 0, fmt.Errorf("integrity check %s: %w", CheckGrantCompanyOutside, err)
		}
		if err := json.Unmarshal([]byte(companyIDsJSON), &row.companyIDs); err != nil {
			// Unparseable narrowing lists count as violations too.
			row.companyIDs = []int64{-1}
		}
		grantRows = append(grantRows, row)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("integrity check %s: %w", CheckGrantCompanyOutside, err)
	}

	owned := make(map[int64]map[int64]bool)
	violations := 0
	for _, row := range grantRows {
		if len(row.companyIDs) == 0 {
			continue
		}
		companies, err := s.companiesOfClient(ctx, owned, row.clientID)
		if err != nil {
			return 0, err
		}
		for _, id := range row.companyIDs {
			if !companies[id] {
				violations++
				break
			}
		}
	}
	return violations, nil
}

func (s *Sweeper) companiesOfClient(ctx context.Context, cache map[int64]map[int64]bool, clientID int64) (map[int64]bool, error) {
	if companies, ok := cache[clientID]; ok {
		return companies, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM companies WHERE client_id = $1 AND deleted_at IS NULL`, clientID)
	if err != nil {
		return nil, fmt.Errorf("integrity check %s: %w", CheckGrantCompanyOutside, err)
	}
	defer rows.Close()

	companies := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("integrity check %s: %w", CheckGrantCompanyOutside, err)
		}
		companies[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("integrity check %s: %w", CheckGrantCompanyOutside, err)
	}

	cache[clientID] = companies
	return companies, nil
}

func (s *Sweeper) publish(report Report) {
	if s.metrics == nil {
		return
	}
	for check, count := range report {
		s.metrics.IntegrityViolations.WithLabelValues(check).Set(float64(count))
	}
}

func (s *Sweeper) recordResult(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IntegritySweepsTotal.WithLabelValues(result).Inc()
}
