package main

import (
	"encoding/json"
	"fmt"
	"io"

	"socialfeed/pkg/display"
	"socialfeed/pkg/model"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Register a username or log in as it, printing the user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				userID, err := a.feed.RegisterOrLogin(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), userID)
				return nil
			})
		},
	}
}

func newPostCmd() *cobra.Command {
	var youtubeURL string
	cmd := &cobra.Command{
		Use:   "post <user-id> [content]",
		Short: "Create a post, printing its id",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content string
			if len(args) == 2 {
				content = args[1]
			}
			return withApp(cmd, func(a *app) error {
				postID, err := a.feed.CreatePost(cmd.Context(), args[0], content, youtubeURL)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), postID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&youtubeURL, "youtube", "", "YouTube link to embed")
	return cmd
}

func newRetweetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retweet <user-id> <post-id>",
		Short: "Retweet a post, printing the new post id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				postID, err := a.feed.CreateRetweet(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), postID)
				return nil
			})
		},
	}
}

func newLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <user-id> <post-id>",
		Short: "Toggle a like, printing the new state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				liked, err := a.feed.ToggleLike(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), liked)
				return nil
			})
		},
	}
}

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text>",
		Short: "Add a comment to a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				return a.feed.AddComment(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newFeedCmd() *cobra.Command {
	var (
		query  string
		sort   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				posts, err := a.feed.ListFeed(ctx, model.FeedFilter{Query: query}, model.SortOrder(sort))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					for post := range posts {
						if err := enc.Encode(post); err != nil {
							return err
						}
					}
					return nil
				}
				for post := range posts {
					author := "?"
					if u, err := a.feed.User(ctx, post.AuthorID); err == nil {
						author = u.Username
					}
					printPost(out, post, author)
					if original, ok := a.feed.ResolveOriginal(ctx, post); ok {
						fmt.Fprintf(out, "    ↳ %s: %s\n", original.ID, display.Preview(original.Content))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive content filter")
	cmd.Flags().StringVar(&sort, "sort", string(model.SortNewest), "newest or mostLiked")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON post per line")
	return cmd
}

func printPost(w io.Writer, post model.Post, author string) {
	fmt.Fprintf(w, "%s  %s  @%s  ♥%d  ⟳%d  💬%d\n",
		post.ID, post.CreatedAt.Format(model.BoardPostTimeLayout), author,
		post.Likes(), post.RetweetCount, len(post.Comments))
	if post.Content != "" {
		fmt.Fprintf(w, "    %s\n", display.Preview(post.Content))
	}
	if embed, ok := display.EmbedURL(post.YoutubeURL); ok {
		fmt.Fprintf(w, "    ▶ %s\n", embed)
	}
}
