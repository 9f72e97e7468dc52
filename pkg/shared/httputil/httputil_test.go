package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneHeadersCopiesOnlyNamed(t *testing.T) {
	src := http.Header{}
	src.Set("Authorization", "Negotiate abc")
	src.Add("Cookie", "a=1")
	src.Add("Cookie", "b=2")
	src.Set("X-Other", "nope")

	out := CloneHeaders(src, []string{"Authorization", "Cookie", "X-Missing"})
	assert.Equal(t, "Negotiate abc", out.Get("Authorization"))
	assert.Equal(t, []string{"a=1", "b=2"}, out.Values("Cookie"))
	assert.Empty(t, out.Get("X-Other"))
	assert.Len(t, out, 2)
}

func TestForwardHeadersReplaces(t *testing.T) {
	dst := http.Header{}
	dst.Set("Authorization", "Basic old")
	src := http.Header{}
	src.Set("Authorization", "Basic new")
	ForwardHeaders(dst, src, []string{"Authorization"})
	assert.Equal(t, []string{"Basic new"}, dst.Values("Authorization"))

	ForwardHeaders(nil, src, []string{"Authorization"})
}

func TestNewClientKeepsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "LLCookie", Value: "token", Path: "/"})
			return
		}
		cookie, err := r.Cookie("LLCookie")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(cookie.Value))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)

	resp, err := client.Get(srv.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewClientInsecureIsPerClient(t *testing.T) {
	insecure, err := NewClient(ClientOptions{InsecureSkipVerify: true})
	require.NoError(t, err)
	secure, err := NewClient(ClientOptions{})
	require.NoError(t, err)

	assert.True(t, insecure.Transport.(*http.Transport).TLSClientConfig.InsecureSkipVerify)
	tlsCfg := secure.Transport.(*http.Transport).TLSClientConfig
	assert.True(t, tlsCfg == nil || !tlsCfg.InsecureSkipVerify)
	assert.Nil(t, http.DefaultTransport.(*http.Transport).TLSClientConfig)
}
