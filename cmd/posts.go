package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
)

var (
	postImageURL string
	postsMine    bool
	postsLimit   int
	deleteYes    bool
)

const postPreviewWidth = 48

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"post", "feed"},
	Short:   "Read and share posts on the feed",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		posts, err := app.API.ListPosts(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load posts: %s", api.UserMessage(err))
		}
		if postsMine {
			posts = filterPosts(posts, func(p api.Post) bool { return p.AuthorID == self.ID })
		}
		if postsLimit > 0 && len(posts) > postsLimit {
			posts = posts[:postsLimit]
		}
		if len(posts) == 0 {
			utils.OutputInfo("No posts found\n")
			return nil
		}
		printPosts(cmd.OutOrStdout(), posts, self.ID, time.Now())
		return nil
	},
}

var postsShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		post, err := app.API.GetPost(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load post: %s", api.UserMessage(err))
		}
		// the feed may embed a partial list
		if comments, err := app.API.Comments(cmd.Context(), post.ID); err == nil {
			post.Comments = comments
		} else {
			utils.LogDebug(fmt.Sprintf("comments for %s: %v", post.ID, err))
		}
		printPost(cmd.OutOrStdout(), *post, self.ID, time.Now())
		return nil
	},
}

var postsCreateCmd = &cobra.Command{
	Use:   "create [content...]",
	Short: "Share a post",
	Long: `Share a post on the feed. Content comes from the arguments, or is
read from a prompt when none are given. An image URL can be attached
with --image; a post needs content, an image, or both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		content := strings.Join(args, " ")
		if content == "" && postImageURL == "" {
			if content, err = newPrompter(cmd).line("What's on your mind? ", ""); err != nil {
				return err
			}
		}
		post, err := app.API.CreatePost(cmd.Context(), api.NewPost{Content: content, Image: postImageURL})
		if err != nil {
			return fmt.Errorf("failed to create post: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("Post shared (%s)\n", post.ID)
		return nil
	},
}

var postsLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post, or take the like back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		likes, err := app.API.LikePost(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to like post: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("%s\n", likeSummary(likes, self.ID))
		return nil
	},
}

var postsCommentCmd = &cobra.Command{
	Use:   "comment <post-id> <text...>",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		c, err := app.API.AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("failed to add comment: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("Comment added (%s)\n", c.ID)
		return nil
	},
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete <post-id> [comment-id]",
	Short: "Delete one of your posts, or a comment under a post",
	Long: `Delete one of your posts. With a comment id, delete that comment
instead; you can remove your own comments and any comment under your posts.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		post, err := app.API.GetPost(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load post: %s", api.UserMessage(err))
		}

		if len(args) == 2 {
			c, ok := findComment(*post, args[1])
			if ok && !c.CanDelete(*post, self.ID) {
				return fmt.Errorf("you can only delete your own comments or comments on your posts")
			}
			if err := app.API.DeleteComment(cmd.Context(), post.ID, args[1]); err != nil {
				return fmt.Errorf("failed to delete comment: %s", api.UserMessage(err))
			}
			utils.OutputSuccess("Comment deleted\n")
			return nil
		}

		if post.AuthorID != self.ID {
			return fmt.Errorf("you can only delete your own posts")
		}
		if !deleteYes {
			ok, err := confirm(cmd, fmt.Sprintf("Delete %q? [y/N]: ", preview(post.Content)))
			if err != nil {
				return err
			}
			if !ok {
				utils.OutputInfo("Nothing deleted\n")
				return nil
			}
		}
		if err := app.API.DeletePost(cmd.Context(), post.ID); err != nil {
			return fmt.Errorf("failed to delete post: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("Post deleted\n")
		return nil
	},
}

func confirm(cmd *cobra.Command, question string) (bool, error) {
	answer, err := newPrompter(cmd).line(question, "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func filterPosts(posts []api.Post, keep func(api.Post) bool) []api.Post {
	out := make([]api.Post, 0, len(posts))
	for _, p := range posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func findComment(p api.Post, id string) (api.Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return api.Comment{}, false
}

func preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return "(image)"
	}
	return truncate.StringWithTail(content, postPreviewWidth, "…")
}

func likeSummary(likes []string, selfID string) string {
	for _, id := range likes {
		if id == selfID {
			return fmt.Sprintf("Liked (%d)", len(likes))
		}
	}
	return fmt.Sprintf("Like removed (%d)", len(likes))
}

func postedAt(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return utils.FormatMessageTime(t, now)
}

func printPosts(w io.Writer, posts []api.Post, selfID string, now time.Time) {
	table := newTable(w, "ID", "Author", "Likes", "Comments", "Posted", "Content")
	for _, p := range posts {
		likes := strconv.Itoa(len(p.Likes))
		if p.LikedBy(selfID) {
			likes += " ♥"
		}
		author := p.AuthorName
		if p.AuthorID == selfID {
			author = "you"
		}
		table.Append([]string{p.ID, author, likes, strconv.Itoa(len(p.Comments)), postedAt(p.CreatedAt, now), preview(p.Content)})
	}
	table.Render()
}

func printPost(w io.Writer, p api.Post, selfID string, now time.Time) {
	fmt.Fprintf(w, "%s · %s\n", p.AuthorName, postedAt(p.CreatedAt, now))
	if p.Content != "" {
		fmt.Fprintf(w, "\n%s\n", p.Content)
	}
	if p.ImageURL != "" {
		fmt.Fprintf(w, "\n[image: %s]\n", p.ImageURL)
	}
	liked := ""
	if p.LikedBy(selfID) {
		liked = ", including you"
	}
	fmt.Fprintf(w, "\n%d likes%s · %d comments\n", len(p.Likes), liked, len(p.Comments))
	if len(p.Comments) == 0 {
		fmt.Fprintln(w, "No comments yet. Be the first to comment!")
		return
	}
	for _, c := range p.Comments {
		fmt.Fprintf(w, "  %s: %s  #%s\n", c.AuthorName, c.Text, c.ID)
	}
}

func init() {
	postsListCmd.Flags().BoolVar(&postsMine, "mine", false, "Only list your own posts")
	postsListCmd.Flags().IntVarP(&postsLimit, "limit", "n", 0, "Only list the first n posts")
	postsCreateCmd.Flags().StringVar(&postImageURL, "image", "", "URL of an image to attach")
	postsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")

	postsCmd.AddCommand(postsListCmd, postsShowCmd, postsCreateCmd, postsLikeCmd, postsCommentCmd, postsDeleteCmd)
	rootCmd.AddCommand(postsCmd)
}
