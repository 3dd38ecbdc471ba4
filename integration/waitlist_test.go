package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/miniquinox/billsync/config"
	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/domain"
	"github.com/miniquinox/billsync/domain/notification"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/models"
	"github.com/miniquinox/billsync/internal/trigger"
	"github.com/miniquinox/billsync/pkg/constants"
	pkgredis "github.com/miniquinox/billsync/pkg/redis"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testRecipient = "team@billsync.test"

// pipeline is one running server with the waitlist API, the dispatcher and
// the row trigger wired to each other.
type pipeline struct {
	db        *gorm.DB
	server    *httptest.Server
	appConfig *config.ApplicationConfig
	core      *domain.CoreDomain

	stopConsumer context.CancelFunc
	consumers    sync.WaitGroup
}

func openTestDB(s *suite.Suite) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	// Every pooled connection to :memory: would be a separate database.
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(models.ModelRegistry...))
	return db
}

// startPipeline builds the application against a sqlite store. notify is
// completed with the server address before the domain is set up.
func startPipeline(s *suite.Suite, cache config.Cache, notify *config.NotificationConfig) *pipeline {
	p := &pipeline{db: openTestDB(s)}
	logger := log.NewLoggerWithJSONOutput()

	p.server = httptest.NewUnstartedServer(nil)
	if notify.TriggerMode == config.TriggerModeWebhook {
		notify.WebhookURL = "http://" + p.server.Listener.Addr().String() + constants.NotifyFunctionPath
	}

	p.appConfig = &config.ApplicationConfig{
		DB:     p.db,
		Logger: logger,
		Cache:  cache,
		Config: &config.AppConfig{
			WaitlistRateLimitRequests: 100,
		},
		Notification: notify,
	}
	p.appConfig.RouterService = router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    30 * time.Second,
	})

	core, err := domain.SetupCoreDomainWithStore(p.appConfig, notification.NewStaticStore(p.db, logger))
	s.Require().NoError(err)
	p.core = core

	var ctx context.Context
	ctx, p.stopConsumer = context.WithCancel(context.Background())
	if core.Consumer != nil {
		p.consumers.Add(1)
		go func() {
			defer p.consumers.Done()
			_ = core.Consumer.Run(ctx)
		}()
	}

	p.server.Config.Handler = p.appConfig.RouterService.GetEngine()
	p.server.Start()
	return p
}

func (p *pipeline) stop() {
	p.server.Close()
	p.stopConsumer()
	p.consumers.Wait()
	// Close drains in-flight publications and closes the shared sqlite handle.
	p.core.Close(p.appConfig.Logger)
	p.appConfig.RouterService.Cleanup()
}

func (p *pipeline) url(path string) string {
	return p.server.URL + path
}

func (p *pipeline) waitForPublications() {
	if async, ok := p.core.Publisher.(*trigger.AsyncPublisher); ok {
		async.Wait()
	}
}

func postJSON(s *suite.Suite, url string, body any) (*http.Response, map[string]interface{}) {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func countRows(s *suite.Suite, db *gorm.DB, model interface{}) int64 {
	var n int64
	s.Require().NoError(db.Model(model).Count(&n).Error)
	return n
}

func signup(name, email, company string) map[string]string {
	return map[string]string{"name": name, "email": email, "company": company}
}

type WebhookPipelineTestSuite struct {
	suite.Suite
	p *pipeline
}

func (suite *WebhookPipelineTestSuite) SetupTest() {
	suite.p = startPipeline(&suite.Suite, nil, &config.NotificationConfig{
		Recipient:      testRecipient,
		WebhookKey:     "anon-key",
		TriggerMode:    config.TriggerModeWebhook,
		TriggerListKey: constants.DefaultTriggerListKey,
		PublishTimeout: 5 * time.Second,
	})
}

func (suite *WebhookPipelineTestSuite) TearDownTest() {
	suite.p.stop()
}

func (suite *WebhookPipelineTestSuite) TestSignupQueuesNotificationEmail() {
	resp, body := postJSON(&suite.Suite, suite.p.url("/v1/waitlist"), signup("Ada Lovelace", "ada@example.com", "Analytical Engines"))

	suite.Equal(http.StatusCreated, resp.StatusCode)
	suite.Equal(float64(201), body["code"])
	suite.Contains(body["message"], "created successfully")

	data := body["data"].(map[string]interface{})
	suite.Equal("Ada Lovelace", data["name"])
	suite.Equal("ada@example.com", data["email"])
	suite.Equal("Analytical Engines", data["company"])
	suite.Contains(data, "id")
	suite.Contains(data, "created_at")

	suite.p.waitForPublications()

	var emails []models.Email
	suite.Require().NoError(suite.p.db.Find(&emails).Error)
	suite.Require().Len(emails, 1)
	suite.Equal(testRecipient, emails[0].To)
	suite.Equal(constants.NotificationSubject, emails[0].Subject)
	suite.Equal(
		"<h2>New Waitlist Signup</h2>"+
			"<p><strong>Name:</strong> Ada Lovelace</p>"+
			"<p><strong>Email:</strong> ada@example.com</p>"+
			"<p><strong>Company:</strong> Analytical Engines</p>",
		emails[0].HTML,
	)
}

func (suite *WebhookPipelineTestSuite) TestResubmissionCreatesSecondRowAndEmail() {
	for i := 0; i < 2; i++ {
		resp, _ := postJSON(&suite.Suite, suite.p.url("/v1/waitlist"), signup("Grace", "grace@example.com", "Navy"))
		suite.Equal(http.StatusCreated, resp.StatusCode)
	}

	suite.p.waitForPublications()

	suite.Equal(int64(2), countRows(&suite.Suite, suite.p.db, &models.WaitlistEntry{}))
	suite.Equal(int64(2), countRows(&suite.Suite, suite.p.db, &models.Email{}))
}

func (suite *WebhookPipelineTestSuite) TestValidationErrorInsertsNothing() {
	resp, body := postJSON(&suite.Suite, suite.p.url("/v1/waitlist"), signup("", "not-an-email", "Acme"))

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Equal(float64(400), body["code"])

	fields := map[string]bool{}
	for _, item := range body["data"].([]interface{}) {
		fields[item.(map[string]interface{})["field"].(string)] = true
	}
	suite.True(fields["name"], "expected a name error")
	suite.True(fields["email"], "expected an email error")

	suite.p.waitForPublications()
	suite.Equal(int64(0), countRows(&suite.Suite, suite.p.db, &models.WaitlistEntry{}))
	suite.Equal(int64(0), countRows(&suite.Suite, suite.p.db, &models.Email{}))
}

func (suite *WebhookPipelineTestSuite) TestDispatcherRejectsMalformedPayloadWithCORS() {
	resp, err := http.Post(suite.p.url(constants.NotifyFunctionPath), "application/json", bytes.NewBufferString(`{"record":`))
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body map[string]string
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.NotEmpty(body["error"])
	suite.Equal(int64(0), countRows(&suite.Suite, suite.p.db, &models.Email{}))
}

func (suite *WebhookPipelineTestSuite) TestHealthCheck() {
	resp, err := http.Get(suite.p.url("/health"))
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)

	var response map[string]interface{}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&response))
	suite.Contains(response["message"], "health check completed")

	data := response["data"].(map[string]interface{})
	suite.Equal(float64(1), data["database"])
	suite.Equal(float64(0), data["cache"])
	suite.Equal(float64(1), data["notification_store"])
	suite.Contains(data, "uptime")
}

type RedisPipelineTestSuite struct {
	suite.Suite
	redis *miniredis.Miniredis
	cache *pkgredis.RedisCache
	p     *pipeline
}

func (suite *RedisPipelineTestSuite) SetupTest() {
	suite.redis = miniredis.RunT(suite.T())

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{Host: suite.redis.Host(), Port: suite.redis.Port()})
	suite.Require().NoError(err)
	suite.cache = cache

	suite.p = startPipeline(&suite.Suite, cache, &config.NotificationConfig{
		Recipient:      testRecipient,
		TriggerMode:    config.TriggerModeRedis,
		TriggerListKey: constants.DefaultTriggerListKey,
		PublishTimeout: 5 * time.Second,
	})
	suite.Require().NotNil(suite.p.core.Consumer)
}

func (suite *RedisPipelineTestSuite) TearDownTest() {
	suite.p.stop()
	_ = suite.cache.Close()
}

func (suite *RedisPipelineTestSuite) TestSignupIsDeliveredThroughQueue() {
	resp, _ := postJSON(&suite.Suite, suite.p.url("/v1/waitlist"), signup("Linus", "linus@example.com", "Kernel Co"))
	suite.Equal(http.StatusCreated, resp.StatusCode)

	suite.Eventually(func() bool {
		var n int64
		if err := suite.p.db.Model(&models.Email{}).Count(&n).Error; err != nil {
			return false
		}
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	var email models.Email
	suite.Require().NoError(suite.p.db.First(&email).Error)
	suite.Equal(testRecipient, email.To)
	suite.Contains(email.HTML, "<p><strong>Company:</strong> Kernel Co</p>")
}

func (suite *RedisPipelineTestSuite) TestHealthReportsCache() {
	resp, err := http.Get(suite.p.url("/health"))
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var response map[string]interface{}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&response))

	data := response["data"].(map[string]interface{})
	suite.Equal(float64(1), data["cache"])
}

func runIntegration(t *testing.T) {
	// Skip integration tests unless explicitly requested
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration tests. Set RUN_INTEGRATION_TESTS=true to run them")
	}
}

func TestWebhookPipelineSuite(t *testing.T) {
	runIntegration(t)
	suite.Run(t, new(WebhookPipelineTestSuite))
}

func TestRedisPipelineSuite(t *testing.T) {
	runIntegration(t)
	suite.Run(t, new(RedisPipelineTestSuite))
}
