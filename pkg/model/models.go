package model

import (
	"slices"
	"time"
)

type User struct {
	ID       string `json:"-" bson:"-"`
	Username string `json:"username" bson:"username"`
}

type Comment struct {
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type Post struct {
	ID             string    `json:"id" bson:"id"`
	AuthorID       string    `json:"author_id" bson:"author_id"`
	Content        string    `json:"content" bson:"content"`
	YoutubeURL     string    `json:"youtube_url,omitempty" bson:"youtube_url,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	LikedBy        []string  `json:"liked_by" bson:"liked_by"`
	RetweetCount   int       `json:"retweet_count" bson:"retweet_count"`
	OriginalPostID string    `json:"original_post_id,omitempty" bson:"original_post_id,omitempty"`
	Comments       []Comment `json:"comments" bson:"comments"`
}

// IsRetweet reports whether the post references an original post.
func (p Post) IsRetweet() bool {
	return p.OriginalPostID != ""
}

func (p Post) LikedByUser(userID string) bool {
	return slices.Contains(p.LikedBy, userID)
}

func (p Post) Likes() int {
	return len(p.LikedBy)
}

// Clone returns a deep copy so callers can never alias store-owned slices.
func (p Post) Clone() Post {
	p.LikedBy = slices.Clone(p.LikedBy)
	p.Comments = slices.Clone(p.Comments)
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	return p
}

// Document is the whole persisted feed state. Posts are kept newest-first.
type Document struct {
	Users UserDirectory `json:"users" bson:"users"`
	Posts []Post        `json:"posts" bson:"posts"`
}

func NewDocument() Document {
	return Document{Users: NewUserDirectory(), Posts: []Post{}}
}

func (d Document) Clone() Document {
	posts := make([]Post, len(d.Posts))
	for i, p := range d.Posts {
		posts[i] = p.Clone()
	}
	return Document{Users: d.Users.Clone(), Posts: posts}
}

// PostIndex returns the position of the post in d.Posts, or -1.
func (d Document) PostIndex(postID string) int {
	return slices.IndexFunc(d.Posts, func(p Post) bool { return p.ID == postID })
}

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortMostLiked SortOrder = "mostLiked"
)

func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(s) {
	case SortNewest, "":
		return SortNewest, true
	case SortMostLiked:
		return SortMostLiked, true
	}
	return "", false
}

type FeedFilter struct {
	Query string
}

// BoardPostTimeLayout is the timestamp format of board posts.
const BoardPostTimeLayout = "2006-01-02 15:04:05"

type BoardPost struct {
	ID        int    `json:"id"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}
