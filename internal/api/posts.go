package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Post is one entry of the shared feed.
type Post struct {
	ID         string
	AuthorID   string
	AuthorName string
	Content    string
	ImageURL   string
	Likes      []string
	Comments   []Comment
	CreatedAt  time.Time
}

// LikedBy reports whether userID is among the post's likes.
func (p Post) LikedBy(userID string) bool {
	return lo.Contains(p.Likes, userID)
}

// Comment is a reply under a post.
type Comment struct {
	ID         string
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// CanDelete reports whether userID may remove c from p: the comment's
// author and the post's author both can.
func (c Comment) CanDelete(p Post, userID string) bool {
	return userID != "" && (c.AuthorID == userID || p.AuthorID == userID)
}

// NewPost is what the create endpoint accepts.
type NewPost struct {
	Content string `json:"content" validate:"required_without=Image"`
	Image   string `json:"image" validate:"omitempty,url"`
}

// ProfileUpdate replaces the editable fields of the caller's profile.
type ProfileUpdate struct {
	Name           string `json:"name" validate:"required"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,url"`
}

type wireComment struct {
	ID        string     `json:"_id" validate:"required"`
	User      *ref       `json:"user"`
	UserName  string     `json:"userName"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"createdAt"`
}

func (w wireComment) comment() Comment {
	c := Comment{ID: w.ID, Text: w.Text, AuthorName: w.UserName}
	if w.User != nil {
		c.AuthorID = w.User.ID
		c.AuthorName = lo.CoalesceOrEmpty(w.User.Name, w.UserName)
	}
	if c.AuthorName == "" {
		c.AuthorName = "Anonymous"
	}
	if w.CreatedAt != nil {
		c.CreatedAt = *w.CreatedAt
	}
	return c
}

type wirePost struct {
	ID        string        `json:"_id" validate:"required"`
	User      *ref          `json:"user"`
	UserID    string        `json:"userId"`
	Content   string        `json:"content"`
	Image     string        `json:"image"`
	Likes     []ref         `json:"likes"`
	Comments  []wireComment `json:"comments" validate:"dive"`
	CreatedAt *time.Time    `json:"createdAt"`
}

func (w wirePost) post() Post {
	p := Post{
		ID:         w.ID,
		AuthorID:   w.UserID,
		AuthorName: "Unknown User",
		Content:    w.Content,
		ImageURL:   w.Image,
		Likes:      lo.Map(w.Likes, func(r ref, _ int) string { return r.ID }),
		Comments:   lo.Map(w.Comments, func(c wireComment, _ int) Comment { return c.comment() }),
	}
	if w.User != nil {
		p.AuthorID = lo.CoalesceOrEmpty(w.User.ID, w.UserID)
		p.AuthorName = lo.CoalesceOrEmpty(w.User.Name, p.AuthorName)
	}
	if w.CreatedAt != nil {
		p.CreatedAt = *w.CreatedAt
	}
	return p
}

type wireLikes struct {
	Likes []ref `json:"likes"`
}

type wireComments struct {
	Comments []wireComment `json:"comments" validate:"dive"`
}

// ListPosts returns the feed in server order.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	body, err := c.call(ctx, http.MethodGet, "/posts", nil)
	if err != nil {
		return nil, err
	}
	ws, err := decodeList[wirePost](body)
	if err != nil {
		return nil, err
	}
	return lo.Map(ws, func(w wirePost, _ int) Post { return w.post() }), nil
}

// GetPost finds id in the feed. The API has no single-post endpoint.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	posts, err := c.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := lo.Find(posts, func(p Post) bool { return p.ID == id })
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// CreatePost shares a post. Content may be empty when an image URL is given.
func (c *Client) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("a post needs content or an image URL: %w", err)
	}
	body, err := c.call(ctx, http.MethodPost, "/posts", in)
	if err != nil {
		return nil, err
	}
	if env, err := decode[wireEnvelope[wirePost]](body); err == nil && env.Data != nil {
		if err := check(*env.Data); err != nil {
			return nil, err
		}
		p := env.Data.post()
		return &p, nil
	}
	w, err := decode[wirePost](body)
	if err != nil {
		return nil, err
	}
	p := w.post()
	return &p, nil
}

// DeletePost removes one of the caller's posts.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil)
	return err
}

// LikePost toggles the caller's like and returns the updated like list.
func (c *Client) LikePost(ctx context.Context, id string) ([]string, error) {
	body, err := c.call(ctx, http.MethodPut, "/posts/"+url.PathEscape(id)+"/like", nil)
	if err != nil {
		return nil, err
	}
	w, err := decode[wireLikes](body)
	if err != nil {
		return nil, err
	}
	if w.Likes == nil {
		return nil, fmt.Errorf("%w: like response has no likes", ErrMalformedResponse)
	}
	return lo.Map(w.Likes, func(r ref, _ int) string { return r.ID }), nil
}

// Comments returns the comments under a post.
func (c *Client) Comments(ctx context.Context, postID string) ([]Comment, error) {
	body, err := c.call(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil)
	if err != nil {
		return nil, err
	}
	ws, err := decodeList[wireComment](body)
	if err != nil {
		return nil, err
	}
	return lo.Map(ws, func(w wireComment, _ int) Comment { return w.comment() }), nil
}

// AddComment posts text under postID and returns the stored comment. The
// server answers with either the new comment or the post's full list, whose
// last entry is the new one.
func (c *Client) AddComment(ctx context.Context, postID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("comment is empty")
	}
	body, err := c.call(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(body, &fields) == nil {
		if _, ok := fields["comments"]; ok {
			w, err := decode[wireComments](body)
			if err != nil {
				return nil, err
			}
			last, ok := lo.Last(w.Comments)
			if !ok {
				return nil, fmt.Errorf("%w: comment list is empty", ErrMalformedResponse)
			}
			cm := last.comment()
			return &cm, nil
		}
	}
	w, err := decode[wireComment](body)
	if err != nil {
		return nil, err
	}
	cm := w.comment()
	return &cm, nil
}

// DeleteComment removes commentID from postID.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID)+"/comment/"+url.PathEscape(commentID), nil)
	return err
}

// UpdateProfile replaces the caller's name, bio and picture and returns the
// server's copy.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*Identity, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	body, err := c.call(ctx, http.MethodPut, "/users/me", in)
	if err != nil {
		return nil, err
	}
	w, err := decode[wireIdentity](body)
	if err != nil {
		return nil, err
	}
	id := w.identity()
	return &id, nil
}
