package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/orderflow/order-service/internal/logger"
)

func TestOrderUpdated_PostsToNotifyPath(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log, _ := logger.NewLogger()
	c := NewClient(srv.URL, log)
	id := uuid.New()

	err := c.OrderUpdated(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, fmt.Sprintf("/orders/%s/notify", id), gotPath)
}

func TestOrderUpdated_IgnoresErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	log, _ := logger.NewLogger()
	c := NewClient(srv.URL, log)

	// any response code counts as delivered
	err := c.OrderUpdated(context.Background(), uuid.New())
	assert.NoError(t, err)
}

func TestOrderUpdated_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	log, _ := logger.NewLogger()
	c := NewClient(srv.URL, log)

	err := c.OrderUpdated(context.Background(), uuid.New())
	assert.Error(t, err)
}
