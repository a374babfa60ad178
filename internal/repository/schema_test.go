package repository

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

func loadSchema(t *testing.T) []byte {
	t.Helper()
	schema, err := os.ReadFile("../../scripts/schema.sql")
	require.NoError(t, err)
	return schema
}

// enumValues extracts the accepted values of a CHECK (col IN (...)) constraint
// so the Go enums and the DDL cannot drift apart silently.
func enumValues(t *testing.T, schema []byte, table, column string) map[string]bool {
	t.Helper()

	tableRe := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`)
	tableMatch := tableRe.FindSubmatch(schema)
	require.NotNil(t, tableMatch, "table %s not found in schema", table)

	checkRe := regexp.MustCompile(`CHECK \(` + column + ` IN \(([^)]+)\)\)`)
	checkMatch := checkRe.FindSubmatch(tableMatch[1])
	require.NotNil(t, checkMatch, "no CHECK constraint on %s.%s", table, column)

	values := make(map[string]bool)
	for _, v := range regexp.MustCompile(`'([^']*)'`).FindAllSubmatch(checkMatch[1], -1) {
		values[string(v[1])] = true
	}
	return values
}

func TestSchemaAcceptsEveryUserRole(t *testing.T) {
	schema := loadSchema(t)

	accepted := enumValues(t, schema, "users", "role")
	roles := []models.UserRole{
		models.RoleStudent,
		models.RoleLecturer,
		models.RolePrincipalLecturer,
		models.RoleProgramLeader,
	}
	for _, role := range roles {
		require.True(t, accepted[string(role)], "role %q not accepted by users.role CHECK", role)
	}
	require.Len(t, accepted, len(roles), "users.role CHECK allows values with no Go counterpart")
}

func TestSchemaAcceptsEveryStatusEnum(t *testing.T) {
	schema := loadSchema(t)

	reportStatuses := enumValues(t, schema, "lecture_reports", "status")
	for _, s := range []models.ReportStatus{
		models.ReportStatusSubmitted,
		models.ReportStatusFeedbackAdded,
		models.ReportStatusApproved,
		models.ReportStatusNeedsImprovement,
	} {
		require.True(t, reportStatuses[string(s)], "report status %q rejected by schema", s)
	}

	summaryStatuses := enumValues(t, schema, "summary_reports", "status")
	for _, s := range []models.SummaryStatus{
		models.SummaryStatusSubmitted,
		models.SummaryStatusFeedbackReceived,
	} {
		require.True(t, summaryStatuses[string(s)], "summary status %q rejected by schema", s)
	}

	assignmentStatuses := enumValues(t, schema, "lecturer_assignments", "status")
	for _, s := range []models.AssignmentStatus{
		models.AssignmentStatusActive,
		models.AssignmentStatusRevoked,
	} {
		require.True(t, assignmentStatuses[string(s)], "assignment status %q rejected by schema", s)
	}

	monitoringStatuses := enumValues(t, schema, "monitoring_logs", "status")
	for _, s := range []models.MonitoringStatus{
		models.MonitoringStatusOpen,
		models.MonitoringStatusInProgress,
		models.MonitoringStatusResolved,
	} {
		require.True(t, monitoringStatuses[string(s)], "monitoring status %q rejected by schema", s)
	}
}
