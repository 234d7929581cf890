package services

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskpick-api/internal/auth"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/database"
	"github.com/yukikurage/taskpick-api/internal/document"
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/repository"
	"github.com/yukikurage/taskpick-api/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type repos struct {
	users repository.UserRepository
	tasks repository.TaskRepository
}

func gormRepos(t *testing.T) repos {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return repos{users: repository.NewUserRepository(db), tasks: repository.NewTaskRepository(db)}
}

func documentRepos(t *testing.T) repos {
	t.Helper()
	store, err := document.NewStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	return repos{users: repository.NewDocumentUserRepository(store), tasks: repository.NewDocumentTaskRepository(store)}
}

// serviceSuite runs the service behaviour against both storage backends
type serviceSuite struct {
	suite.Suite
	newRepos func(t *testing.T) repos

	repos     repos
	authSvc   *AuthService
	userSvc   *UserService
	taskSvc   *TaskService
	userID    string
	userEmail string
}

func (s *serviceSuite) SetupTest() {
	s.repos = s.newRepos(s.T())
	locks := utils.NewKeyedMutex()
	s.authSvc = NewAuthService(s.repos.users, auth.NewTokenIssuer("test-secret", time.Hour), locks)
	s.userSvc = NewUserService(s.repos.users, locks)
	s.taskSvc = NewTaskService(s.repos.users, s.repos.tasks, locks, constants.PaginationCumulative)

	res, err := s.authSvc.Signup(SignupInput{Email: "alice@example.com", Password: "password123", Name: "Alice"})
	s.Require().NoError(err)
	s.userID = res.User.ID
	s.userEmail = res.User.Email
}

func (s *serviceSuite) TestSignupRejectsDuplicateEmail() {
	_, err := s.authSvc.Signup(SignupInput{Email: "Alice@Example.com", Password: "password123"})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *serviceSuite) TestSignupValidation() {
	_, err := s.authSvc.Signup(SignupInput{Email: "not-an-email", Password: "password123"})
	s.ErrorIs(err, ErrInvalidEmail)

	_, err = s.authSvc.Signup(SignupInput{Email: "bob@example.com", Password: "short"})
	s.ErrorIs(err, ErrPasswordTooShort)
}

func (s *serviceSuite) TestSigninTokenResolvesToSameUser() {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	res, err := s.authSvc.Signin(SigninInput{Email: s.userEmail, Password: "password123"})
	s.Require().NoError(err)

	userID, err := issuer.Parse(res.Token)
	s.Require().NoError(err)
	s.Equal(s.userID, userID)
}

func (s *serviceSuite) TestSigninFailures() {
	_, err := s.authSvc.Signin(SigninInput{Email: "nobody@example.com", Password: "password123"})
	s.ErrorIs(err, ErrUserNotFound)

	_, err = s.authSvc.Signin(SigninInput{Email: s.userEmail, Password: "wrong-password"})
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *serviceSuite) TestAuthorizeAndRequestAssistant() {
	caps, err := s.authSvc.Authorize(s.userID)
	s.Require().NoError(err)
	s.False(caps.AccessRequested)

	s.Require().NoError(s.authSvc.RequestAssistant(s.userID))

	caps, err = s.authSvc.Authorize(s.userID)
	s.Require().NoError(err)
	s.True(caps.AccessRequested)

	s.ErrorIs(s.authSvc.RequestAssistant("missing"), ErrUserNotFound)
}

func (s *serviceSuite) TestUpdateUser() {
	name := "Alice Liddell"
	on := true
	password := "new-password-1"
	user, err := s.userSvc.UpdateUser(s.userID, UserPatch{Name: &name, AssistantOn: &on, Password: &password})
	s.Require().NoError(err)
	s.Equal(name, user.Name)
	s.True(user.AssistantOn)

	_, err = s.authSvc.Signin(SigninInput{Email: s.userEmail, Password: password})
	s.NoError(err)
}

func (s *serviceSuite) TestUpdateUserEmailConflict() {
	_, err := s.authSvc.Signup(SignupInput{Email: "bob@example.com", Password: "password123"})
	s.Require().NoError(err)

	email := "bob@example.com"
	_, err = s.userSvc.UpdateUser(s.userID, UserPatch{Email: &email})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *serviceSuite) TestDeleteUserRemovesTasks() {
	_, err := s.taskSvc.CreateTask(s.userID, TaskFields{"description": "one"})
	s.Require().NoError(err)

	s.Require().NoError(s.userSvc.DeleteUser(s.userID))

	_, err = s.userSvc.GetUser(s.userID)
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.taskSvc.ListTasks(s.userID, TaskQuery{})
	s.ErrorIs(err, ErrUserNotFound)
	s.ErrorIs(s.userSvc.DeleteUser(s.userID), ErrUserNotFound)
}

func (s *serviceSuite) TestCreateTaskDefaults() {
	s.taskSvc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	task, err := s.taskSvc.CreateTask(s.userID, TaskFields{
		"description": "write report",
		"priority":    "sooner",
		"id":          "caller-id",
		"createdAt":   "1999-01-01T00:00:00Z",
		"color":       "red",
	})
	s.Require().NoError(err)

	s.NotEqual("caller-id", task.ID)
	s.NotEmpty(task.ID)
	s.Equal("2024-05-01T12:00:00Z", task.CreatedAt)
	s.Equal(models.TaskStatusCreated, task.Status)
	s.Equal("", task.UpdatedAt)
	s.Equal(models.PrioritySooner, task.Priority)
	s.Equal("red", task.Extra["color"])

	stored, err := s.taskSvc.GetTask(s.userID, task.ID)
	s.Require().NoError(err)
	s.Equal(task.Description, stored.Description)
	s.Equal("red", stored.Extra["color"])
}

func (s *serviceSuite) TestCreateTaskStatusOverride() {
	task, err := s.taskSvc.CreateTask(s.userID, TaskFields{"status": "done"})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusDone, task.Status)
}

func (s *serviceSuite) TestCreateTaskRejectsInvalidFields() {
	_, err := s.taskSvc.CreateTask(s.userID, TaskFields{"priority": "urgent"})
	s.ErrorIs(err, ErrInvalidField)

	_, err = s.taskSvc.CreateTask(s.userID, TaskFields{"description": 42.0})
	s.ErrorIs(err, ErrInvalidField)

	page, err := s.taskSvc.ListTasks(s.userID, TaskQuery{Filter: "created,done"})
	s.Require().NoError(err)
	s.Empty(page.Tasks)
}

func (s *serviceSuite) TestCreateTaskForMissingUser() {
	_, err := s.taskSvc.CreateTask("missing", TaskFields{})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *serviceSuite) TestUpdateTask() {
	task, err := s.taskSvc.CreateTask(s.userID, TaskFields{"description": "draft"})
	s.Require().NoError(err)

	s.taskSvc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	updated, err := s.taskSvc.UpdateTask(s.userID, task.ID, TaskFields{
		"id":          "hijack",
		"createdAt":   "1999-01-01T00:00:00Z",
		"status":      "done",
		"description": "final",
	})
	s.Require().NoError(err)
	s.Equal(task.ID, updated.ID)
	s.Equal(task.CreatedAt, updated.CreatedAt)
	s.Equal(models.TaskStatusDone, updated.Status)
	s.Equal("final", updated.Description)
	s.Equal("2024-06-01T00:00:00Z", updated.UpdatedAt)

	explicit, err := s.taskSvc.UpdateTask(s.userID, task.ID, TaskFields{"updatedAt": "yesterday"})
	s.Require().NoError(err)
	s.Equal("yesterday", explicit.UpdatedAt)
}

func (s *serviceSuite) TestUpdateTaskNullLeavesFieldsUnchanged() {
	task, err := s.taskSvc.CreateTask(s.userID, TaskFields{"description": "draft", "priority": "later", "status": nil})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCreated, task.Status)

	s.taskSvc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	updated, err := s.taskSvc.UpdateTask(s.userID, task.ID, TaskFields{
		"updatedAt":   nil,
		"description": nil,
		"priority":    nil,
	})
	s.Require().NoError(err)
	s.Equal("draft", updated.Description)
	s.Equal(models.PriorityLater, updated.Priority)
	s.Equal("2024-06-01T00:00:00Z", updated.UpdatedAt)
}

func (s *serviceSuite) TestUpdateMissingTaskLeavesListUnchanged() {
	_, err := s.taskSvc.CreateTask(s.userID, TaskFields{"description": "keep"})
	s.Require().NoError(err)
	before, err := s.taskSvc.ListTasks(s.userID, TaskQuery{})
	s.Require().NoError(err)

	_, err = s.taskSvc.UpdateTask(s.userID, "missing", TaskFields{"status": "done"})
	s.ErrorIs(err, ErrTaskNotFound)

	after, err := s.taskSvc.ListTasks(s.userID, TaskQuery{})
	s.Require().NoError(err)
	s.Equal(ids(before.Tasks), ids(after.Tasks))
}

func (s *serviceSuite) TestDeleteTaskIsIdempotent() {
	a, err := s.taskSvc.CreateTask(s.userID, TaskFields{"description": "a"})
	s.Require().NoError(err)
	b, err := s.taskSvc.CreateTask(s.userID, TaskFields{"description": "b"})
	s.Require().NoError(err)

	s.Require().NoError(s.taskSvc.DeleteTask(s.userID, a.ID))
	first, err := s.taskSvc.ListTasks(s.userID, TaskQuery{})
	s.Require().NoError(err)

	s.Require().NoError(s.taskSvc.DeleteTask(s.userID, a.ID))
	second, err := s.taskSvc.ListTasks(s.userID, TaskQuery{})
	s.Require().NoError(err)

	s.Equal([]string{b.ID}, ids(first.Tasks))
	s.Equal(ids(first.Tasks), ids(second.Tasks))
	s.ErrorIs(s.taskSvc.DeleteTask("missing", a.ID), ErrUserNotFound)
}

func (s *serviceSuite) TestListKeepsInsertionOrder() {
	var created []string
	for i := 0; i < 12; i++ {
		task, err := s.taskSvc.CreateTask(s.userID, TaskFields{})
		s.Require().NoError(err)
		created = append(created, task.ID)
	}

	page, err := s.taskSvc.ListTasks(s.userID, TaskQuery{Page: 2})
	s.Require().NoError(err)
	s.Equal(created, ids(page.Tasks))
	s.Equal(2, page.PaginationAmount)
}

func (s *serviceSuite) TestConcurrentCreatesAreAllKept() {
	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.taskSvc.CreateTask(s.userID, TaskFields{})
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	tasks, err := s.taskSvc.UnresolvedTasks(s.userID)
	s.Require().NoError(err)
	s.Len(tasks, writers)
}

// pausingUsers blocks the first armed FindByID until release is closed.
type pausingUsers struct {
	repository.UserRepository
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (p *pausingUsers) FindByID(id string) (*models.User, error) {
	user, err := p.UserRepository.FindByID(id)
	if p.armed.CompareAndSwap(true, false) {
		close(p.reached)
		<-p.release
	}
	return user, err
}

func (s *serviceSuite) TestRequestAssistantDoesNotRevertConcurrentProfileUpdate() {
	users := &pausingUsers{
		UserRepository: s.repos.users,
		reached:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	locks := utils.NewKeyedMutex()
	authSvc := NewAuthService(users, auth.NewTokenIssuer("test-secret", time.Hour), locks)
	userSvc := NewUserService(users, locks)

	old := "old"
	_, err := userSvc.UpdateUser(s.userID, UserPatch{Name: &old})
	s.Require().NoError(err)

	users.armed.Store(true)
	requested := make(chan error, 1)
	go func() { requested <- authSvc.RequestAssistant(s.userID) }()
	<-users.reached

	updated := make(chan error, 1)
	go func() {
		name := "new"
		_, err := userSvc.UpdateUser(s.userID, UserPatch{Name: &name})
		updated <- err
	}()

	// Give the profile update a chance to run while the request is paused.
	time.Sleep(50 * time.Millisecond)
	close(users.release)
	s.Require().NoError(<-requested)
	s.Require().NoError(<-updated)

	user, err := s.userSvc.GetUser(s.userID)
	s.Require().NoError(err)
	s.Equal("new", user.Name)
	s.True(user.AccessRequested)
}

func TestServices_Gorm(t *testing.T) {
	suite.Run(t, &serviceSuite{newRepos: gormRepos})
}

func TestServices_Document(t *testing.T) {
	suite.Run(t, &serviceSuite{newRepos: documentRepos})
}
