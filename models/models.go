package models

import "time"

// DeletedUser owns the posts and comments of removed accounts.
// The row is created by the first migration and can never log in.
const DeletedUser = "[deleted]"

// FeaturedLimit is how many posts the featured lists return.
const FeaturedLimit = 6

type User struct {
	Username string        `json:"username"`
	Posts    []PostSummary `json:"posts"`
}

type Decade struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DecadeDetail struct {
	Decade
	Posts []PostSummary `json:"posts"`
}

// nil fields are left untouched
type DecadeUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type Post struct {
	Id        int64  `json:"id"`
	Title     string `json:"title"`
	Url       string `json:"url"`
	Owner     string `json:"owner"`
	Decade_id int64  `json:"decade_id"`
}

type PostDetail struct {
	Post
	Comments []Comment `json:"comments"`
}

type PostSummary struct {
	Id    int64  `json:"id"`
	Title string `json:"title"`
	Url   string `json:"url"`
}

// nil fields are left untouched
type PostUpdate struct {
	Title *string `json:"title"`
	Url   *string `json:"url"`
}

type Comment struct {
	Id         int64     `json:"id"`
	Text       string    `json:"text"`
	Owner      string    `json:"owner"`
	Post_id    int64     `json:"post_id"`
	Created_at time.Time `json:"created"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
