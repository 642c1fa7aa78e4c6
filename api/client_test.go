package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mensajeria/models"
)

func TestListConversationsQueryAndDecode(t *testing.T) {
	var gotQuery string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		raw := `{"data":[{"id":42,"tipo":"vacante","vacante_id":10,"vacante_titulo":"Backend Dev",
			"contraparte":{"usuario_id":5,"nombre":"Ana","rol":"candidato"},
			"ultimo_mensaje":"Hola","no_leidos":2}],"meta":{"page":1,"page_size":20,"total":1}}`
		w.Write([]byte(raw))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zaptest.NewLogger(t))
	items, err := c.ListConversations(context.Background(), 1, 20, "ana", "vacante")
	require.NoError(t, err)

	assert.Equal(t, "page=1&page_size=20&q=ana&tipo=vacante", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, items, 1)
	assert.Equal(t, uint(42), items[0].ID)
	assert.Equal(t, models.TipoVacante, items[0].Tipo)
	assert.Equal(t, "Ana", items[0].Contraparte.Nombre)
	assert.Equal(t, 2, items[0].NoLeidos)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, IsUnauthorized},
		{"forbidden", http.StatusForbidden, IsForbidden},
		{"not found", http.StatusNotFound, IsNotFound},
		{"validation", http.StatusBadRequest, IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope","code":"x"}`))
			}))
			defer srv.Close()

			c := New(srv.URL, "tok", zaptest.NewLogger(t))
			_, err := c.GetConversation(context.Background(), 1)
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestSendMessageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/conversations/42/mensajes", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"cuerpo":"Hola"}`, string(body))
		w.Write([]byte(`{"data":{"id":501,"conversacion_id":42,"remitente_usuario_id":7,"cuerpo":"Hola"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zaptest.NewLogger(t))
	msg, err := c.SendMessage(context.Background(), 42, "Hola")
	require.NoError(t, err)
	assert.Equal(t, uint(501), msg.ID)
	assert.Equal(t, uint(42), msg.ConversacionID)
}

func TestMarkReadNullMeansLatest(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations/42/leer", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		w.Write([]byte(`{"data":{"mensaje_id":502}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zaptest.NewLogger(t))
	require.NoError(t, c.MarkRead(context.Background(), 42, nil))
	id := uint(502)
	require.NoError(t, c.MarkRead(context.Background(), 42, &id))

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"mensaje_id":null}`, bodies[0])
	assert.JSONEq(t, `{"mensaje_id":502}`, bodies[1])
}

func TestCreateVacanteConversationIdempotent(t *testing.T) {
	// 同一对 (vacante, candidato) 两次创建返回同一个会话
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var body struct {
			Tipo        string `json:"tipo"`
			VacanteID   uint   `json:"vacante_id"`
			CandidatoID uint   `json:"candidato_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.TipoVacante, body.Tipo)
		assert.Equal(t, uint(10), body.VacanteID)
		assert.Equal(t, uint(5), body.CandidatoID)
		w.Write([]byte(`{"data":{"id":42,"tipo":"vacante","vacante_id":10}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zaptest.NewLogger(t))
	first, err := c.CreateVacanteConversation(context.Background(), 10, 5)
	require.NoError(t, err)
	second, err := c.CreateVacanteConversation(context.Background(), 10, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	assert.Equal(t, first.ID, second.ID)
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.ListMessages(ctx, 42, 1, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// 避免 goroutine 泄漏告警
	time.Sleep(10 * time.Millisecond)
}
