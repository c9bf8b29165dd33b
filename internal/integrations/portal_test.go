package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/types"
)

func newPortalTestServer(t *testing.T, validToken string, loginCount, uploadCount *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(loginCount, 1)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["email"] != "admin@example.com" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": validToken})
	})

	mux.HandleFunc("/api/candidates", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(uploadCount, 1)
		var rec types.CandidateRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		assert.NotEmpty(t, rec.Identity.CandidateID, "上传的档案应包含candidate_id")
		w.WriteHeader(http.StatusCreated)
	})

	return httptest.NewServer(mux)
}

func testRecord() *types.CandidateRecord {
	rec := types.NewCandidateRecord()
	rec.Identity.CandidateID = "AB12CD34"
	rec.Identity.Name = "Rahul Sharma"
	rec.Identity.Email = "rahul@example.com"
	return rec
}

func TestPortalClient_UploadCandidate(t *testing.T) {
	var loginCount, uploadCount int32
	server := newPortalTestServer(t, "tok-1", &loginCount, &uploadCount)
	defer server.Close()

	client := NewPortalClient(&config.PortalConfig{
		URL:           server.URL,
		AdminEmail:    "admin@example.com",
		AdminPassword: "secret",
	})

	err := client.UploadCandidate(context.Background(), testRecord())
	require.NoError(t, err, "上传候选人档案不应失败")
	assert.Equal(t, int32(1), atomic.LoadInt32(&loginCount), "首次上传应触发一次登录")
	assert.Equal(t, int32(1), atomic.LoadInt32(&uploadCount))

	// 第二次上传复用缓存的token
	err = client.UploadCandidate(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loginCount), "第二次上传应复用缓存的token")
	assert.Equal(t, int32(2), atomic.LoadInt32(&uploadCount))
}

func TestPortalClient_ReloginOnExpiredToken(t *testing.T) {
	var loginCount, uploadCount int32
	server := newPortalTestServer(t, "tok-2", &loginCount, &uploadCount)
	defer server.Close()

	client := NewPortalClient(&config.PortalConfig{
		URL:           server.URL,
		AdminEmail:    "admin@example.com",
		AdminPassword: "secret",
	})

	// 预置一个已失效的token，触发401后应重新登录并重试成功
	client.token = "expired-token"

	err := client.UploadCandidate(context.Background(), testRecord())
	require.NoError(t, err, "token失效后应自动重新登录并重试")
	assert.Equal(t, int32(1), atomic.LoadInt32(&loginCount))
	assert.Equal(t, int32(1), atomic.LoadInt32(&uploadCount))
}

func TestPortalClient_LoginFailure(t *testing.T) {
	var loginCount, uploadCount int32
	server := newPortalTestServer(t, "tok-3", &loginCount, &uploadCount)
	defer server.Close()

	client := NewPortalClient(&config.PortalConfig{
		URL:           server.URL,
		AdminEmail:    "admin@example.com",
		AdminPassword: "wrong-password",
	})

	err := client.UploadCandidate(context.Background(), testRecord())
	require.Error(t, err, "密码错误时登录应失败")
	assert.Equal(t, int32(0), atomic.LoadInt32(&uploadCount), "登录失败时不应发起上传请求")
}
