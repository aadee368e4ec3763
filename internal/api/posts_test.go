package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

const feedJSON = `[
  {"_id":"p1","user":{"_id":"ada","name":"Ada"},"content":"first post","likes":["me","bob"],
   "comments":[{"_id":"c1","user":{"_id":"bob","name":"Bob"},"text":"nice"}],
   "createdAt":"2024-05-01T10:00:00.000Z"},
  {"_id":"p2","userId":"me","content":"","image":"https://cdn.example/cat.png","likes":[]}
]`

func TestListPosts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/posts" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, feedJSON)
	})

	posts, err := c.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts() error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %+v", posts)
	}
	p := posts[0]
	if p.AuthorID != "ada" || p.AuthorName != "Ada" || !p.LikedBy("me") || p.LikedBy("ada") || p.CreatedAt.IsZero() {
		t.Errorf("first post = %+v", p)
	}
	if len(p.Comments) != 1 || p.Comments[0].AuthorName != "Bob" || p.Comments[0].Text != "nice" {
		t.Errorf("comments = %+v", p.Comments)
	}
	if q := posts[1]; q.AuthorID != "me" || q.AuthorName != "Unknown User" || q.ImageURL != "https://cdn.example/cat.png" {
		t.Errorf("second post = %+v", q)
	}
}

func TestListPostsRejectsMissingIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"_id":"p1","comments":[{"text":"no id"}]}]`)
	})
	if _, err := c.ListPosts(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("ListPosts() = %v, want ErrMalformedResponse", err)
	}
}

func TestGetPost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, feedJSON)
	})
	p, err := c.GetPost(context.Background(), "p2")
	if err != nil || p.ID != "p2" {
		t.Fatalf("GetPost() = %+v, %v", p, err)
	}
	if _, err := c.GetPost(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPost(nope) = %v, want ErrNotFound", err)
	}
}

func TestCreatePost(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		io.WriteString(w, `{"_id":"p9","user":"me","content":"hello feed","likes":[]}`)
	})

	p, err := c.CreatePost(context.Background(), NewPost{Content: "  hello feed "})
	if err != nil {
		t.Fatalf("CreatePost() error: %v", err)
	}
	if got["content"] != "hello feed" || got["image"] != "" {
		t.Errorf("request body = %v", got)
	}
	if p.ID != "p9" || p.AuthorID != "me" {
		t.Errorf("post = %+v", p)
	}
}

func TestCreatePostValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	tests := []struct {
		name string
		in   NewPost
	}{
		{"empty", NewPost{Content: "   "}},
		{"bad image url", NewPost{Content: "x", Image: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.CreatePost(context.Background(), tt.in); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLikePost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/posts/p1/like" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"likes":["bob",{"_id":"me"}]}`)
	})
	likes, err := c.LikePost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("LikePost() error: %v", err)
	}
	if strings.Join(likes, ",") != "bob,me" {
		t.Errorf("likes = %v", likes)
	}
}

func TestAddCommentResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"single comment", `{"_id":"c7","userName":"Me","text":"agreed"}`},
		{"full list", `{"comments":[{"_id":"c1","text":"nice"},{"_id":"c7","user":{"_id":"me","name":"Me"},"text":"agreed"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var text string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/posts/p1/comments" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				var in map[string]string
				_ = json.NewDecoder(r.Body).Decode(&in)
				text = in["text"]
				io.WriteString(w, tt.body)
			})
			cm, err := c.AddComment(context.Background(), "p1", " agreed ")
			if err != nil {
				t.Fatalf("AddComment() error: %v", err)
			}
			if text != "agreed" || cm.ID != "c7" || cm.Text != "agreed" || cm.AuthorName != "Me" {
				t.Errorf("sent %q, got %+v", text, cm)
			}
		})
	}
}

func TestAddCommentRejectsEmptyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	if _, err := c.AddComment(context.Background(), "p1", "  "); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCommentsAndDeletes(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			io.WriteString(w, `[{"_id":"c1","userName":"Bob","text":"nice"}]`)
			return
		}
		io.WriteString(w, `{"message":"ok"}`)
	})

	cms, err := c.Comments(context.Background(), "p1")
	if err != nil || len(cms) != 1 || cms[0].AuthorName != "Bob" || cms[0].AuthorID != "" {
		t.Fatalf("Comments() = %+v, %v", cms, err)
	}
	if err := c.DeleteComment(context.Background(), "p1", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeletePost(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	want := "GET /posts/p1/comments,DELETE /posts/p1/comment/c1,DELETE /posts/p1"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("calls = %s", got)
	}
}

func TestCommentCanDelete(t *testing.T) {
	post := Post{ID: "p1", AuthorID: "ada"}
	tests := []struct {
		author, user string
		want         bool
	}{
		{"bob", "bob", true},
		{"bob", "ada", true},
		{"bob", "me", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := (Comment{AuthorID: tt.author}).CanDelete(post, tt.user); got != tt.want {
			t.Errorf("CanDelete(author %q, user %q) = %v", tt.author, tt.user, got)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	var got ProfileUpdate
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/users/me" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"_id":"me","name":"Ada L.","bio":"analyst","profilePicture":"https://cdn.example/me.png"}`)
	})

	id, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: " Ada L. ", Bio: "analyst", ProfilePicture: "https://cdn.example/me.png"})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if got.Name != "Ada L." || got.Bio != "analyst" {
		t.Errorf("request = %+v", got)
	}
	if id.DisplayName != "Ada L." || id.AvatarURL != "https://cdn.example/me.png" {
		t.Errorf("identity = %+v", id)
	}

	if _, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: "  "}); err == nil {
		t.Error("blank name accepted")
	}
}
