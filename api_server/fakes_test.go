package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/auth"
	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// MockCredentialStore keeps users in memory. Passwords are stored as given.
type MockCredentialStore struct {
	mu       sync.Mutex
	users    map[string]string
	getCalls int
	content  *MockContentStore
}

func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{users: map[string]string{models.DeletedUser: "!"}}
}

func (m *MockCredentialStore) exists(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok
}

func (m *MockCredentialStore) Register(ctx context.Context, username, password string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return models.User{}, status.Error(codes.AlreadyExists, fmt.Sprintf("Duplicate username: %s", username))
	}
	m.users[username] = password
	return models.User{Username: username, Posts: []models.PostSummary{}}, nil
}

func (m *MockCredentialStore) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[username]
	if !ok || stored != password || username == models.DeletedUser {
		return models.User{}, status.Error(codes.Unauthenticated, "Invalid username/password")
	}
	return models.User{Username: username}, nil
}

func (m *MockCredentialStore) Get(ctx context.Context, username string) (models.User, error) {
	m.mu.Lock()
	m.getCalls++
	_, ok := m.users[username]
	m.mu.Unlock()
	if !ok {
		return models.User{}, status.Error(codes.NotFound, fmt.Sprintf("No user: %s", username))
	}
	user := models.User{Username: username, Posts: []models.PostSummary{}}
	if m.content != nil {
		user.Posts = m.content.postsOf(username)
	}
	return user, nil
}

func (m *MockCredentialStore) Remove(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if username == models.DeletedUser {
		return status.Error(codes.FailedPrecondition, "Cannot remove [deleted]")
	}
	if _, ok := m.users[username]; !ok {
		return status.Error(codes.NotFound, fmt.Sprintf("No user: %s", username))
	}
	delete(m.users, username)
	if m.content != nil {
		m.content.reassign(username)
	}
	return nil
}

// MockContentStore keeps content in memory and applies the same
// existence-then-ownership checks as the Postgres store.
type MockContentStore struct {
	mu         sync.Mutex
	users      *MockCredentialStore
	decades    map[int64]models.Decade
	posts      map[int64]models.Post
	comments   map[int64]models.Comment
	favorites  map[string]map[int64]bool
	nextDecade int64
	nextPost   int64
	nextComm   int64
	now        time.Time
	fail       error
}

func NewMockContentStore(users *MockCredentialStore) *MockContentStore {
	m := &MockContentStore{
		users:     users,
		decades:   map[int64]models.Decade{},
		posts:     map[int64]models.Post{},
		comments:  map[int64]models.Comment{},
		favorites: map[string]map[int64]bool{},
		now:       time.Date(1999, time.December, 31, 23, 59, 0, 0, time.UTC),
	}
	users.content = m
	for _, name := range []string{"1960s", "1970s", "1980s", "1990s", "2000s"} {
		m.nextDecade++
		m.decades[m.nextDecade] = models.Decade{Id: m.nextDecade, Name: name}
	}
	return m
}

func (m *MockContentStore) postsOf(username string) []models.PostSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	summaries := []models.PostSummary{}
	for _, p := range m.sortedPosts() {
		if p.Owner == username {
			summaries = append(summaries, models.PostSummary{Id: p.Id, Title: p.Title, Url: p.Url})
		}
	}
	return summaries
}

func (m *MockContentStore) reassign(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, username)
	for id, p := range m.posts {
		if p.Owner == username {
			p.Owner = models.DeletedUser
			m.posts[id] = p
		}
	}
	for id, c := range m.comments {
		if c.Owner == username {
			c.Owner = models.DeletedUser
			m.comments[id] = c
		}
	}
}

func (m *MockContentStore) sortedPosts() []models.Post {
	posts := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Id < posts[j].Id })
	return posts
}

func (m *MockContentStore) requireUser(username string) error {
	if !m.users.exists(username) {
		return status.Error(codes.NotFound, fmt.Sprintf("No user: %s", username))
	}
	return nil
}

func (m *MockContentStore) requirePost(id int64) (models.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return models.Post{}, status.Error(codes.NotFound, fmt.Sprintf("No post: %d", id))
	}
	return p, nil
}

func (m *MockContentStore) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	if err := m.requireUser(post.Owner); err != nil {
		return models.Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Post{}, m.fail
	}
	if _, ok := m.decades[post.Decade_id]; !ok {
		return models.Post{}, status.Error(codes.NotFound, fmt.Sprintf("No decade: %d", post.Decade_id))
	}
	m.nextPost++
	post.Id = m.nextPost
	m.posts[post.Id] = post
	return post, nil
}

func (m *MockContentStore) GetPost(ctx context.Context, id int64) (models.PostDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.requirePost(id)
	if err != nil {
		return models.PostDetail{}, err
	}
	detail := models.PostDetail{Post: p, Comments: []models.Comment{}}
	for _, c := range m.comments {
		if c.Post_id == id {
			detail.Comments = append(detail.Comments, c)
		}
	}
	sort.Slice(detail.Comments, func(i, j int) bool { return detail.Comments[i].Id < detail.Comments[j].Id })
	return detail, nil
}

func (m *MockContentStore) UpdatePost(ctx context.Context, id int64, update models.PostUpdate, caller string) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.requirePost(id)
	if err != nil {
		return models.Post{}, err
	}
	if err := auth.Authorize(caller, p.Owner); err != nil {
		return models.Post{}, err
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Url != nil {
		p.Url = *update.Url
	}
	m.posts[id] = p
	return p, nil
}

func (m *MockContentStore) DeletePost(ctx context.Context, id int64, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.requirePost(id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, p.Owner); err != nil {
		return err
	}
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.Post_id == id {
			delete(m.comments, cid)
		}
	}
	for _, favs := range m.favorites {
		delete(favs, id)
	}
	return nil
}

func (m *MockContentStore) GetRecentPosts(ctx context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	posts := m.sortedPosts()
	recent := []models.Post{}
	for i := len(posts) - 1; i >= 0 && len(recent) < models.FeaturedLimit; i-- {
		recent = append(recent, posts[i])
	}
	return recent, nil
}

func (m *MockContentStore) GetMostFavoritedPosts(ctx context.Context) ([]models.PostDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int64]int{}
	for _, favs := range m.favorites {
		for id := range favs {
			counts[id]++
		}
	}
	loved := []models.PostDetail{}
	for id := range counts {
		detail := models.PostDetail{Post: m.posts[id], Comments: []models.Comment{}}
		for _, c := range m.comments {
			if c.Post_id == id {
				detail.Comments = append(detail.Comments, c)
			}
		}
		sort.Slice(detail.Comments, func(i, j int) bool { return detail.Comments[i].Id < detail.Comments[j].Id })
		loved = append(loved, detail)
	}
	sort.Slice(loved, func(i, j int) bool {
		if counts[loved[i].Id] != counts[loved[j].Id] {
			return counts[loved[i].Id] > counts[loved[j].Id]
		}
		return loved[i].Id < loved[j].Id
	})
	if len(loved) > models.FeaturedLimit {
		loved = loved[:models.FeaturedLimit]
	}
	return loved, nil
}

func (m *MockContentStore) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	if err := m.requireUser(comment.Owner); err != nil {
		return models.Comment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.requirePost(comment.Post_id); err != nil {
		return models.Comment{}, err
	}
	m.nextComm++
	comment.Id = m.nextComm
	comment.Created_at = m.now
	m.comments[comment.Id] = comment
	return comment, nil
}

func (m *MockContentStore) lookupComment(postID, id int64) (models.Comment, error) {
	c, ok := m.comments[id]
	if !ok || c.Post_id != postID {
		return models.Comment{}, status.Error(codes.NotFound, fmt.Sprintf("No comment: %d", id))
	}
	return c, nil
}

func (m *MockContentStore) GetComment(ctx context.Context, postID, id int64) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupComment(postID, id)
}

func (m *MockContentStore) UpdateComment(ctx context.Context, postID, id int64, text, caller string) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.lookupComment(postID, id)
	if err != nil {
		return models.Comment{}, err
	}
	if err := auth.Authorize(caller, c.Owner); err != nil {
		return models.Comment{}, err
	}
	c.Text = text
	m.comments[id] = c
	return c, nil
}

func (m *MockContentStore) DeleteComment(ctx context.Context, postID, id int64, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.lookupComment(postID, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, c.Owner); err != nil {
		return err
	}
	delete(m.comments, id)
	return nil
}

func (m *MockContentStore) AddFavorite(ctx context.Context, username string, postID int64) error {
	if err := m.requireUser(username); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.requirePost(postID); err != nil {
		return err
	}
	if m.favorites[username] == nil {
		m.favorites[username] = map[int64]bool{}
	}
	if m.favorites[username][postID] {
		return status.Error(codes.AlreadyExists, fmt.Sprintf("Post %d is already a favorite", postID))
	}
	m.favorites[username][postID] = true
	return nil
}

func (m *MockContentStore) RemoveFavorite(ctx context.Context, username string, postID int64) error {
	if err := m.requireUser(username); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.requirePost(postID); err != nil {
		return err
	}
	if !m.favorites[username][postID] {
		return status.Error(codes.FailedPrecondition, fmt.Sprintf("Post %d is not a favorite", postID))
	}
	delete(m.favorites[username], postID)
	return nil
}

func (m *MockContentStore) GetFavorites(ctx context.Context, username string) ([]models.Post, error) {
	if err := m.requireUser(username); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	favorites := []models.Post{}
	for _, p := range m.sortedPosts() {
		if m.favorites[username][p.Id] {
			favorites = append(favorites, p)
		}
	}
	return favorites, nil
}

func (m *MockContentStore) CreateDecade(ctx context.Context, decade models.Decade) (models.Decade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDecade++
	decade.Id = m.nextDecade
	m.decades[decade.Id] = decade
	return decade, nil
}

func (m *MockContentStore) GetDecades(ctx context.Context) ([]models.Decade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	decades := []models.Decade{}
	for _, d := range m.decades {
		decades = append(decades, d)
	}
	sort.Slice(decades, func(i, j int) bool { return decades[i].Id < decades[j].Id })
	return decades, nil
}

func (m *MockContentStore) GetDecade(ctx context.Context, id int64) (models.DecadeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decades[id]
	if !ok {
		return models.DecadeDetail{}, status.Error(codes.NotFound, fmt.Sprintf("No decade: %d", id))
	}
	detail := models.DecadeDetail{Decade: d, Posts: []models.PostSummary{}}
	posts := m.sortedPosts()
	for i := len(posts) - 1; i >= 0; i-- {
		if posts[i].Decade_id == id {
			detail.Posts = append(detail.Posts, models.PostSummary{Id: posts[i].Id, Title: posts[i].Title, Url: posts[i].Url})
		}
	}
	return detail, nil
}

func (m *MockContentStore) UpdateDecade(ctx context.Context, id int64, update models.DecadeUpdate) (models.Decade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decades[id]
	if !ok {
		return models.Decade{}, status.Error(codes.NotFound, fmt.Sprintf("No decade: %d", id))
	}
	if update.Name != nil {
		d.Name = *update.Name
	}
	if update.Description != nil {
		d.Description = *update.Description
	}
	m.decades[id] = d
	return d, nil
}

func (m *MockContentStore) DeleteDecade(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decades[id]; !ok {
		return status.Error(codes.NotFound, fmt.Sprintf("No decade: %d", id))
	}
	for _, p := range m.posts {
		if p.Decade_id == id {
			return status.Error(codes.FailedPrecondition, fmt.Sprintf("Decade %d still has posts", id))
		}
	}
	delete(m.decades, id)
	return nil
}

func (m *MockContentStore) Close() {}
