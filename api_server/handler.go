package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/khagerman/Nostalgia-Machine-backend/auth"
	"github.com/khagerman/Nostalgia-Machine-backend/models"
	"github.com/khagerman/Nostalgia-Machine-backend/postRepo"
	"github.com/khagerman/Nostalgia-Machine-backend/userRepo"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	users  userRepo.CredentialStore
	posts  postRepo.PersistenceDB
	tokens *auth.TokenCodec
}

func NewHandler(users userRepo.CredentialStore, posts postRepo.PersistenceDB, tokens *auth.TokenCodec) *Handler {
	return &Handler{
		users:  users,
		posts:  posts,
		tokens: tokens,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type newPostRequest struct {
	Title     string `json:"title"`
	Url       string `json:"url"`
	Decade_id int64  `json:"decade_id"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type decadeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body cannot be empty")
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, code int, username string) {
	token, err := h.tokens.Issue(username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, code, models.TokenResponse{Token: token})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkCredentials(req); err != nil {
		badRequest(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issueToken(w, r, http.StatusCreated, user.Username)
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		badRequest(w, r, errors.New("username and password are required"))
		return
	}
	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issueToken(w, r, http.StatusOK, user.Username)
}

func (h *Handler) getDecades(w http.ResponseWriter, r *http.Request) {
	decades, err := h.posts.GetDecades(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decades": decades})
}

func (h *Handler) getDecade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	decade, err := h.posts.GetDecade(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decade": decade})
}

func (h *Handler) createDecade(w http.ResponseWriter, r *http.Request) {
	var req decadeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkDecadeName(req.Name); err != nil {
		badRequest(w, r, err)
		return
	}
	decade, err := h.posts.CreateDecade(r.Context(), models.Decade{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"decade": decade})
}

func (h *Handler) updateDecade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var update models.DecadeUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkDecadeUpdate(update); err != nil {
		badRequest(w, r, err)
		return
	}
	decade, err := h.posts.UpdateDecade(r.Context(), id, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decade": decade})
}

func (h *Handler) deleteDecade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.posts.DeleteDecade(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// createPost files the post under the caller; the body cannot name an owner.
func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req newPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkNewPost(req); err != nil {
		badRequest(w, r, err)
		return
	}
	post, err := h.posts.CreatePost(r.Context(), models.Post{
		Title:     req.Title,
		Url:       req.Url,
		Owner:     auth.CallerFrom(r.Context()),
		Decade_id: req.Decade_id,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var update models.PostUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkPostUpdate(update); err != nil {
		badRequest(w, r, err)
		return
	}
	post, err := h.posts.UpdatePost(r.Context(), id, update, auth.CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.posts.DeletePost(r.Context(), id, auth.CallerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkCommentText(req.Text); err != nil {
		badRequest(w, r, err)
		return
	}
	comment, err := h.posts.CreateComment(r.Context(), models.Comment{
		Text:    req.Text,
		Owner:   auth.CallerFrom(r.Context()),
		Post_id: postID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})
}

// commentIDs reads the post id and comment id from the path.
func commentIDs(r *http.Request) (int64, int64, error) {
	postID, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r, "commentid")
	if err != nil {
		return 0, 0, err
	}
	return postID, id, nil
}

func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	postID, id, err := commentIDs(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	comment, err := h.posts.GetComment(r.Context(), postID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	postID, id, err := commentIDs(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := checkCommentText(req.Text); err != nil {
		badRequest(w, r, err)
		return
	}
	comment, err := h.posts.UpdateComment(r.Context(), postID, id, req.Text, auth.CallerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	postID, id, err := commentIDs(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.posts.DeleteComment(r.Context(), postID, id, auth.CallerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": id})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := h.users.Remove(r.Context(), username); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": username})
}

func (h *Handler) getFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.posts.GetFavorites(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.posts.AddFavorite(r.Context(), r.PathValue("username"), postID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favoriteAdded": postID})
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.posts.RemoveFavorite(r.Context(), r.PathValue("username"), postID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": postID})
}

func (h *Handler) featuredNew(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.GetRecentPosts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *Handler) featuredLoved(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.GetMostFavoritedPosts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": posts})
}
