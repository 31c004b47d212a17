package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ripple/engagement"
	"ripple/models"
	"ripple/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testRouter wires the engagement and post routes over the in-memory store,
// with a stub auth middleware injecting the given actor.
func testRouter(mem *store.Memory, actor primitive.ObjectID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := engagement.NewEngine(mem, nil)
	engage := NewEngageHandler(engine, mem)
	posts := NewPostHandler(mem)

	router := gin.New()
	authed := router.Group("/api")
	authed.Use(func(c *gin.Context) {
		if !actor.IsZero() {
			c.Set("userId", actor.Hex())
		}
		c.Next()
	})
	authed.POST("/posts/:id/like", engage.ToggleLike)
	authed.POST("/posts/:id/repost", engage.ToggleRepost)
	authed.POST("/posts/:id/vote", engage.ToggleVote)
	authed.POST("/users/:id/follow", engage.ToggleFollow)
	authed.POST("/communities/:id/join", engage.ToggleMembership)
	authed.POST("/posts", posts.CreatePost)
	authed.GET("/posts/:id", posts.GetPost)
	authed.POST("/posts/:id/poll/vote", posts.VotePoll)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestToggleLikeRoundTrip(t *testing.T) {
	mem := store.NewMemory()
	actor := primitive.NewObjectID()
	post := models.Post{UserID: primitive.NewObjectID(), Content: "hello"}
	postID := mem.AddPost(post)

	router := testRouter(mem, actor)
	path := "/api/posts/" + postID.Hex() + "/like"

	w := doJSON(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"active":true}`, w.Body.String())
	require.Equal(t, int64(1), mem.Counter(store.CollPosts, postID, "likesCount"))

	w = doJSON(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"active":false}`, w.Body.String())
	require.Equal(t, int64(0), mem.Counter(store.CollPosts, postID, "likesCount"))
}

func TestToggleLikeUnknownPost(t *testing.T) {
	router := testRouter(store.NewMemory(), primitive.NewObjectID())

	w := doJSON(t, router, http.MethodPost, "/api/posts/"+primitive.NewObjectID().Hex()+"/like", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleRequiresAuth(t *testing.T) {
	router := testRouter(store.NewMemory(), primitive.NilObjectID)

	w := doJSON(t, router, http.MethodPost, "/api/posts/"+primitive.NewObjectID().Hex()+"/like", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFollowSelfIsBlocked(t *testing.T) {
	actor := primitive.NewObjectID()
	router := testRouter(store.NewMemory(), actor)

	w := doJSON(t, router, http.MethodPost, "/api/users/"+actor.Hex()+"/follow", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoteEndpointDrivesStateMachine(t *testing.T) {
	mem := store.NewMemory()
	actor := primitive.NewObjectID()
	post := models.Post{UserID: primitive.NewObjectID(), Content: "vote on me"}
	postID := mem.AddPost(post)

	router := testRouter(mem, actor)
	path := "/api/posts/" + postID.Hex() + "/vote"

	w := doJSON(t, router, http.MethodPost, path, gin.H{"type": "agree"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"vote":"agree"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, path, gin.H{"type": "disagree"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"vote":"disagree"}`, w.Body.String())
	require.Equal(t, int64(0), mem.Counter(store.CollPosts, postID, "agreementCount"))
	require.Equal(t, int64(1), mem.Counter(store.CollPosts, postID, "disagreementCount"))

	w = doJSON(t, router, http.MethodPost, path, gin.H{"type": "disagree"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"vote":""}`, w.Body.String())

	// Unknown vote types are rejected before any write.
	w = doJSON(t, router, http.MethodPost, path, gin.H{"type": "maybe"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoreOutageAnswersRetryable(t *testing.T) {
	mem := store.NewMemory()
	actor := primitive.NewObjectID()
	post := models.Post{UserID: primitive.NewObjectID(), Content: "x"}
	postID := mem.AddPost(post)
	mem.FailWrites = true

	router := testRouter(mem, actor)

	w := doJSON(t, router, http.MethodPost, "/api/posts/"+postID.Hex()+"/like", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Retryable bool `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Retryable)
}

func TestCreatePostWithPollAndVote(t *testing.T) {
	mem := store.NewMemory()
	actor := primitive.NewObjectID()
	router := testRouter(mem, actor)

	w := doJSON(t, router, http.MethodPost, "/api/posts", gin.H{
		"content": "pick one",
		"poll": gin.H{
			"question": "pick one",
			"options":  []string{"red", "blue"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		PostID string `json:"postId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := "/api/posts/" + created.PostID + "/poll/vote"
	w = doJSON(t, router, http.MethodPost, path, gin.H{"option": 0})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Voted bool         `json:"voted"`
		Poll  *models.Poll `json:"poll"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Voted)
	require.Equal(t, int64(1), resp.Poll.TotalVotes)
	require.Equal(t, int64(1), resp.Poll.Options[0].Votes)

	// Voting again, on the other option, changes nothing.
	w = doJSON(t, router, http.MethodPost, path, gin.H{"option": 1})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Voted)
	require.Equal(t, int64(1), resp.Poll.TotalVotes)
}
