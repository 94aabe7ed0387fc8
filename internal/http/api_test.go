package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"userhub/internal/repository/sqlite"
	"userhub/internal/service"
	"userhub/internal/storage"
)

type stubArchive struct {
	objects []storage.ObjectInfo
	deleted []string
}

func (s *stubArchive) UploadPayload(ctx context.Context, opts storage.UploadOptions, key string, body []byte, contentType string) (string, error) {
	return "s3://test-bucket/" + key, nil
}

func (s *stubArchive) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	return s.objects, nil
}

func (s *stubArchive) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	s.deleted = append(s.deleted, prefix)
	return nil
}

func setupRouter(t *testing.T) *gin.Engine {
	return setupRouterWithArchive(t, nil, "")
}

func setupRouterWithArchive(t *testing.T, archive storage.Service, bucket string) *gin.Engine {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	snapshotRepo := sqlite.NewSnapshotFileRepository(db)
	topicRepo := sqlite.NewTopicRepository(db)
	componentRepo := sqlite.NewComponentRepository(db)
	interfaceTypeRepo := sqlite.NewInterfaceTypeRepository(db)
	interfaceRepo := sqlite.NewInterfaceRepository(db)
	reportRepo := sqlite.NewReportRepository(db)

	for _, init := range []func(context.Context) error{
		userRepo.Init, snapshotRepo.Init, topicRepo.Init,
		componentRepo.Init, interfaceTypeRepo.Init, interfaceRepo.Init, reportRepo.Init,
	} {
		require.NoError(t, init(ctx))
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewHandler(
		service.NewUserService(userRepo),
		service.NewAuthService("admin", "secret-pass", "test-signing-key", 30*time.Minute),
		service.NewSnapshotService(snapshotRepo, topicRepo, archive, storage.UploadOptions{Bucket: bucket}, logger),
		service.NewTopicService(topicRepo),
		service.NewCatalogService(componentRepo, interfaceTypeRepo, interfaceRepo),
		service.NewReportService(reportRepo, topicRepo, sqlite.NewSequenceRepository(db)),
		archive,
		bucket,
		logger,
		nil,
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	require.Equal(t, "healthy", body["status"])
}

func TestCreateUser(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var user UserResponse
	decode(t, rec, &user)
	require.NotZero(t, user.ID)
	require.Equal(t, "Alice", user.Name)
	require.True(t, user.Active)

	t.Run("duplicate email", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"name":  "Other",
			"email": "alice@example.com",
		})
		require.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]string
		decode(t, rec, &body)
		require.Contains(t, body["detail"], "alice@example.com")
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"name":  "Bad",
			"email": "not-an-email",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing name", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"email": "x@example.com",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListUsers(t *testing.T) {
	router := setupRouter(t)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"name":  "User",
			"email": email,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users?skip=1&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list UserListResponse
	decode(t, rec, &list)
	require.Len(t, list.Users, 2)
	require.Equal(t, 2, list.Total)
	require.Equal(t, 1, list.Skip)
	require.Equal(t, 2, list.Limit)
	require.Equal(t, "b@example.com", list.Users[0].Email)
}

func TestGetUpdateDeleteUser(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var user UserResponse
	decode(t, rec, &user)

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/users/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("get missing", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/users/999", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("get bad id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/users/abc", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/api/v1/users/1", map[string]string{
			"name": "Alice Smith",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var updated UserResponse
		decode(t, rec, &updated)
		require.Equal(t, "Alice Smith", updated.Name)
		require.Equal(t, "alice@example.com", updated.Email)
	})

	t.Run("deactivate and activate", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPatch, "/api/v1/users/1/deactivate", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var u UserResponse
		decode(t, rec, &u)
		require.False(t, u.Active)

		rec = doJSON(t, router, http.MethodPatch, "/api/v1/users/1/activate", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &u)
		require.True(t, u.Active)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/users/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodDelete, "/api/v1/users/1", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthFlow(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "admin",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login loginResponse
	decode(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)
	require.Equal(t, "bearer", login.TokenType)

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"username": "admin",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me with token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+login.AccessToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		decode(t, rec, &body)
		require.Equal(t, "admin", body["username"])
	})

	t.Run("me without token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func snapshotContent(t *testing.T) string {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"topics": []map[string]any{
			{
				"name":      "orders.prod",
				"producers": []string{"svc-a"},
				"consumers": []string{"svc-b"},
				"stats":     map[string]any{"total_messages": 500},
			},
		},
	})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSnapshotUploadAndProcess(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/snapshots/upload", map[string]string{
		"filename":    "inventory.json",
		"uploaded_by": "admin",
		"content":     snapshotContent(t),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var file SnapshotFileResponse
	decode(t, rec, &file)
	require.NotZero(t, file.ID)
	require.Equal(t, "pending", file.Status)

	t.Run("process", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/snapshots/1/process", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var result ProcessingResultResponse
		decode(t, rec, &result)
		require.Equal(t, "completed", result.Status)
		require.Equal(t, 1, result.TopicsCreated)
	})

	t.Run("topics visible after processing", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/topics", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var topics []TopicResponse
		decode(t, rec, &topics)
		require.Len(t, topics, 1)
		require.Equal(t, "orders.prod", topics[0].Name)
		require.Equal(t, "prod", topics[0].Environment)

		detail := doJSON(t, router, http.MethodGet, "/api/v1/topics/1", nil)
		require.Equal(t, http.StatusOK, detail.Code)

		var topic TopicDetailResponse
		decode(t, detail, &topic)
		require.Equal(t, []string{"svc-a"}, topic.Producers)
		require.Equal(t, []string{"svc-b"}, topic.Consumers)
	})

	t.Run("topic history", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/topics/1/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []TopicHistoryResponse
		decode(t, rec, &entries)
		require.Len(t, entries, 1)
		require.Equal(t, "created", entries[0].Action)
	})

	t.Run("bad content", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/snapshots/upload", map[string]string{
			"filename": "bad.json",
			"content":  "%%%",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("process missing file", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/snapshots/999/process", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCatalogEndpoints(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/components", map[string]string{
		"name":        "billing",
		"description": "billing service",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var component ComponentResponse
	decode(t, rec, &component)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/interface-types", map[string]string{
		"name": "kafka",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var itype InterfaceTypeResponse
	decode(t, rec, &itype)

	t.Run("duplicate component", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/components", map[string]string{
			"name": "billing",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("create interface", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/interfaces", map[string]any{
			"name":              "billing-events",
			"component_id":      component.ID,
			"interface_type_id": itype.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var iface InterfaceResponse
		decode(t, rec, &iface)
		require.Equal(t, component.ID, iface.ComponentID)
	})

	t.Run("interface with unknown component", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/interfaces", map[string]any{
			"name":              "ghost",
			"component_id":      999,
			"interface_type_id": itype.ID,
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lists", func(t *testing.T) {
		for _, path := range []string{"/api/v1/components", "/api/v1/interface-types", "/api/v1/interfaces"} {
			rec := doJSON(t, router, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestReportEndpoints(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/snapshots/upload", map[string]string{
		"filename": "inventory.json",
		"content":  snapshotContent(t),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/snapshots/1/process", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/reports", map[string]any{
		"report_type":  2,
		"generated_by": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var report ReportResponse
	decode(t, rec, &report)
	require.Equal(t, 2, report.Type)
	// the one seeded topic has a consumer, so the report is empty
	require.Zero(t, report.ResultsCount)

	t.Run("invalid type", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/reports", map[string]any{
			"report_type": 42,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get and list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/reports/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/reports?report_type=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var reports []ReportResponse
		decode(t, rec, &reports)
		require.Len(t, reports, 1)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/1/items", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/999", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNextAvailableID(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", map[string]string{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("taken", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/ids", map[string]any{
			"entity": "user",
			"id":     1,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var probe IDProbeResponse
		decode(t, rec, &probe)
		require.False(t, probe.IsAvailable)
		require.Equal(t, int64(2), probe.AvailableID)
	})

	t.Run("free", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/ids", map[string]any{
			"entity": "user",
			"id":     7,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var probe IDProbeResponse
		decode(t, rec, &probe)
		require.True(t, probe.IsAvailable)
	})

	t.Run("unknown entity", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/ids", map[string]any{
			"entity": "widget",
			"id":     1,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestArchiveObjectsUnconfigured(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/archive/objects", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/archive/objects?prefix=x", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestArchiveObjects(t *testing.T) {
	archive := &stubArchive{objects: []storage.ObjectInfo{
		{Key: "userhub-snapshots/a.json", Size: 42},
	}}
	router := setupRouterWithArchive(t, archive, "test-bucket")

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/archive/objects", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var objects []StorageObjectResponse
		decode(t, rec, &objects)
		require.Len(t, objects, 1)
		require.Equal(t, "userhub-snapshots/a.json", objects[0].Key)
	})

	t.Run("delete prefix", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/archive/objects?prefix=userhub-snapshots/", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []string{"userhub-snapshots/"}, archive.deleted)
	})

	t.Run("delete without prefix", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/archive/objects", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
