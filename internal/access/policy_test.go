package access

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/untibullet/scouting-reports/internal/models"
)

func TestCheckReportPermission(t *testing.T) {
	coach := &models.User{ID: 1, Role: models.RoleCoach}
	analyst := &models.User{ID: 2, Role: models.RoleAnalyst}
	stranger := &models.User{ID: 3, Role: models.RoleUnknown}

	tests := []struct {
		name    string
		user    *models.User
		method  string
		allowed bool
	}{
		{"coach reads", coach, http.MethodGet, true},
		{"coach creates", coach, http.MethodPost, false},
		{"coach updates", coach, http.MethodPut, false},
		{"analyst creates", analyst, http.MethodPost, true},
		{"analyst deletes", analyst, http.MethodDelete, true},
		{"unknown role reads", stranger, http.MethodGet, true},
		{"unknown role creates", stranger, http.MethodPost, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReportPermission(tt.user, tt.method)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPermissionDenied))
		})
	}
}

func TestCheckReportPermission_AnalystOnlyMessage(t *testing.T) {
	err := CheckReportPermission(&models.User{ID: 1, Role: models.RoleCoach}, http.MethodPost)

	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "Only analysts can create reports.", denied.Message)
}

func TestCheckReportObjectPermission(t *testing.T) {
	report := &models.Report{ID: 10, AuthorID: 2}

	author := &models.User{ID: 2, Role: models.RoleAnalyst}
	otherAnalyst := &models.User{ID: 5, Role: models.RoleAnalyst}
	coach := &models.User{ID: 1, Role: models.RoleCoach}

	assert.NoError(t, CheckReportObjectPermission(author, http.MethodPut, report))
	assert.NoError(t, CheckReportObjectPermission(author, http.MethodDelete, report))
	assert.NoError(t, CheckReportObjectPermission(coach, http.MethodGet, report))

	assert.ErrorIs(t, CheckReportObjectPermission(otherAnalyst, http.MethodPut, report), ErrPermissionDenied)
	assert.ErrorIs(t, CheckReportObjectPermission(coach, http.MethodDelete, report), ErrPermissionDenied)
}

func TestReportScope(t *testing.T) {
	teamID := int64(7)

	coachScope := ReportScope(&models.User{ID: 1, Role: models.RoleCoach}, &teamID)
	assert.Nil(t, coachScope.AuthorID)
	require.NotNil(t, coachScope.TeamID)
	assert.Equal(t, teamID, *coachScope.TeamID)

	analystScope := ReportScope(&models.User{ID: 2, Role: models.RoleAnalyst}, nil)
	require.NotNil(t, analystScope.AuthorID)
	assert.Equal(t, int64(2), *analystScope.AuthorID)
	assert.Nil(t, analystScope.TeamID)

	unknownScope := ReportScope(&models.User{ID: 3, Role: models.RoleUnknown}, nil)
	require.NotNil(t, unknownScope.AuthorID)
	assert.Equal(t, int64(3), *unknownScope.AuthorID)
}
