package handlers

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/untibullet/scouting-reports/internal/models"
	"github.com/untibullet/scouting-reports/internal/repository"
)

// memStore хранилище в памяти с теми же ограничениями, что и схема БД:
// уникальность (team, author), каскадное удаление отчетов, SET NULL для created_by.
type memStore struct {
	mu      sync.Mutex
	seq     int64
	clock   time.Time
	users   map[int64]*models.User
	teams   map[int64]*models.Team
	reports map[int64]*models.Report
}

func newMemStore() *memStore {
	return &memStore{
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users:   make(map[int64]*models.User),
		teams:   make(map[int64]*models.Team),
		reports: make(map[int64]*models.Report),
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, repository.ErrAlreadyExists
		}
	}

	created := *user
	created.ID = s.nextID()
	created.Email = email
	created.CreatedAt = s.now()
	created.UpdatedAt = created.CreatedAt
	s.users[created.ID] = &created

	out := created
	return &out, nil
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	for rid, r := range s.reports {
		if r.AuthorID == id {
			delete(s.reports, rid)
		}
	}
	for _, t := range s.teams {
		if t.CreatedBy != nil && *t.CreatedBy == id {
			t.CreatedBy = nil
		}
	}
	return nil
}

func (s *memStore) CreateTeam(_ context.Context, in models.TeamInput, createdBy int64) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color := in.Color
	if color == "" {
		color = models.DefaultTeamColor
	}
	creator := createdBy
	team := &models.Team{
		ID:        s.nextID(),
		Name:      in.Name,
		Logo:      in.Logo,
		Color:     color,
		League:    in.League,
		CreatedBy: &creator,
	}
	team.CreatedAt = s.now()
	team.UpdatedAt = team.CreatedAt
	s.teams[team.ID] = team

	out := *team
	return &out, nil
}

func (s *memStore) GetTeam(_ context.Context, id int64) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *memStore) ListTeams(_ context.Context) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	teams := make([]models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		teams = append(teams, *t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID > teams[j].ID })
	return teams, nil
}

func (s *memStore) UpdateTeam(_ context.Context, id int64, in models.TeamInput) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Name, t.Logo, t.League = in.Name, in.Logo, in.League
	t.Color = in.Color
	if t.Color == "" {
		t.Color = models.DefaultTeamColor
	}
	t.UpdatedAt = s.now()

	out := *t
	return &out, nil
}

func (s *memStore) DeleteTeam(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.teams, id)
	for rid, r := range s.reports {
		if r.TeamID == id {
			delete(s.reports, rid)
		}
	}
	return nil
}

func (s *memStore) ListLeagues(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	leagues := make([]string, 0)
	for _, t := range s.teams {
		if !seen[t.League] {
			seen[t.League] = true
			leagues = append(leagues, t.League)
		}
	}
	sort.Strings(leagues)
	return leagues, nil
}

// project заполняет денормализованные поля отчета
func (s *memStore) project(r *models.Report) models.Report {
	out := *r
	if t, ok := s.teams[r.TeamID]; ok {
		out.TeamName = t.Name
		out.TeamLogo = t.Logo
	}
	if u, ok := s.users[r.AuthorID]; ok {
		out.AuthorName = u.FullName()
	}
	return out
}

func (s *memStore) hasReport(teamID, authorID, exceptID int64) bool {
	for _, r := range s.reports {
		if r.TeamID == teamID && r.AuthorID == authorID && r.ID != exceptID {
			return true
		}
	}
	return false
}

func orDefault(raw json.RawMessage, def string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(def)
	}
	return raw
}

func (s *memStore) CreateReport(_ context.Context, authorID int64, in models.ReportInput) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[in.TeamID]; !ok {
		return nil, repository.ErrInvalidReference
	}
	if s.hasReport(in.TeamID, authorID, 0) {
		return nil, repository.ErrAlreadyExists
	}

	r := &models.Report{
		ID:              s.nextID(),
		TeamID:          in.TeamID,
		AuthorID:        authorID,
		Status:          models.StatusNotStarted,
		KeyPlayers:      orDefault(in.KeyPlayers, "[]"),
		MatchStats:      orDefault(in.MatchStats, "{}"),
		TacticalSummary: orDefault(in.TacticalSummary, "{}"),
	}
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.PerformanceInsights != nil {
		r.PerformanceInsights = *in.PerformanceInsights
	}
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.reports[r.ID] = r

	out := s.project(r)
	return &out, nil
}

func inScope(r *models.Report, scope models.ReportFilter) bool {
	if scope.AuthorID != nil && r.AuthorID != *scope.AuthorID {
		return false
	}
	if scope.TeamID != nil && r.TeamID != *scope.TeamID {
		return false
	}
	return true
}

func (s *memStore) GetReport(_ context.Context, id int64, scope models.ReportFilter) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok || !inScope(r, scope) {
		return nil, repository.ErrNotFound
	}
	out := s.project(r)
	return &out, nil
}

func (s *memStore) ListReports(_ context.Context, filter models.ReportFilter) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]models.Report, 0)
	for _, r := range s.reports {
		if inScope(r, filter) {
			reports = append(reports, s.project(r))
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].UpdatedAt.Equal(reports[j].UpdatedAt) {
			return reports[i].UpdatedAt.After(reports[j].UpdatedAt)
		}
		return reports[i].ID > reports[j].ID
	})
	return reports, nil
}

func (s *memStore) UpdateReport(_ context.Context, id int64, in models.ReportInput) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if _, ok := s.teams[in.TeamID]; !ok {
		return nil, repository.ErrInvalidReference
	}
	if s.hasReport(in.TeamID, r.AuthorID, r.ID) {
		return nil, repository.ErrAlreadyExists
	}

	r.TeamID = in.TeamID
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.KeyPlayers != nil {
		r.KeyPlayers = in.KeyPlayers
	}
	if in.MatchStats != nil {
		r.MatchStats = in.MatchStats
	}
	if in.TacticalSummary != nil {
		r.TacticalSummary = in.TacticalSummary
	}
	if in.PerformanceInsights != nil {
		r.PerformanceInsights = *in.PerformanceInsights
	}
	r.UpdatedAt = s.now()

	out := s.project(r)
	return &out, nil
}

func (s *memStore) UpdateReportStatus(_ context.Context, id int64, status models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = s.now()

	out := s.project(r)
	return &out, nil
}

func (s *memStore) DeleteReport(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

// countReports считает отчеты пары (team, author)
func (s *memStore) countReports(teamID, authorID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.reports {
		if r.TeamID == teamID && r.AuthorID == authorID {
			n++
		}
	}
	return n
}
