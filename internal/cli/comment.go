package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Discuss canvas elements",
	Long: `Read and write the comment thread of an element.

Mention collaborators with @username; they get a notification.

Examples:
  dashcraft comment list 1a2b
  dashcraft comment add 1a2b "Can we use weekly buckets here? @bob"
  dashcraft comment watch 1a2b`,
}

var commentListCmd = &cobra.Command{
	Use:     "list [element]",
	Aliases: []string{"ls"},
	Short:   "Show the thread of an element",
	Args:    cobra.ExactArgs(1),
	RunE:    runCommentList,
}

var commentAddCmd = &cobra.Command{
	Use:   "add [element] [text]",
	Short: "Comment on an element",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCommentAdd,
}

var commentDeleteCmd = &cobra.Command{
	Use:     "delete [element] [comment]",
	Aliases: []string{"rm"},
	Short:   "Delete a comment",
	Args:    cobra.ExactArgs(2),
	RunE:    runCommentDelete,
}

var commentWatchCmd = &cobra.Command{
	Use:   "watch [element]",
	Short: "Follow the thread of an element live",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentWatch,
}

func init() {
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentDeleteCmd)
	commentCmd.AddCommand(commentWatchCmd)
}

func printComment(c model.Comment) {
	when := c.CreatedAt.Local().Format("Jan 02 15:04")
	state := ""
	if comments.IsTemporaryID(c.ID) {
		state = " (sending)"
	}
	fmt.Printf("  %s  %s  %s%s\n", shortID(c.ID), when, c.AuthorName(), state)
	body := comments.HighlightMentions(c.Content, func(m string) string { return "\033[1m" + m + "\033[0m" })
	for _, line := range strings.Split(body, "\n") {
		fmt.Printf("      %s\n", line)
	}
}

func runCommentList(cmd *cobra.Command, args []string) error {
	return viewCanvas(func(ctx context.Context, s *session) error {
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}
		thread := s.ws.Thread(el.ID)
		defer thread.Close()
		if err := thread.Fetch(ctx); err != nil {
			return err
		}

		list := thread.Comments()
		if len(list) == 0 {
			fmt.Println("No comments yet.")
			return nil
		}
		fmt.Printf("\n💬 %s %s\n\n", el.Type, shortID(el.ID))
		for _, c := range list {
			printComment(c)
		}
		fmt.Println()
		return nil
	})
}

func runCommentAdd(cmd *cobra.Command, args []string) error {
	content := strings.Join(args[1:], " ")
	return viewCanvas(func(ctx context.Context, s *session) error {
		if !s.ws.Permissions().CanComment {
			return fmt.Errorf("you cannot comment on this project")
		}
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}

		var mentions []string
		if tokens := comments.ExtractMentionTokens(content); len(tokens) > 0 {
			members, err := s.ws.Members(ctx)
			if err != nil {
				fmt.Printf("⚠️  Could not load collaborators, mentions will not notify: %v\n", err)
			} else {
				mentions = comments.ResolveMentions(members, content)
				if len(mentions) < len(tokens) {
					fmt.Println("⚠️  Some @mentions do not match a collaborator")
				}
			}
		}

		thread := s.ws.Thread(el.ID)
		defer thread.Close()
		done, err := thread.Add(ctx, content, mentions)
		if err != nil {
			return err
		}
		if err := <-done; err != nil {
			return err
		}
		fmt.Printf("💬 Comment posted on %s\n", shortID(el.ID))
		return nil
	})
}

func runCommentDelete(cmd *cobra.Command, args []string) error {
	return viewCanvas(func(ctx context.Context, s *session) error {
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}
		thread := s.ws.Thread(el.ID)
		defer thread.Close()
		if err := thread.Fetch(ctx); err != nil {
			return err
		}

		list := thread.Comments()
		ids := make([]string, len(list))
		for i, c := range list {
			ids[i] = c.ID
		}
		id, err := matchID(ids, args[1])
		if err != nil {
			return fmt.Errorf("comment not found: %w", err)
		}
		if !confirm("Delete this comment?") {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := thread.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Println("🗑️  Comment deleted")
		return nil
	})
}

func runCommentWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return viewCanvas(func(_ context.Context, s *session) error {
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}
		thread, err := s.ws.OpenThread(ctx, el.ID)
		if err != nil {
			return err
		}
		defer thread.Close()

		seen := make(map[string]bool)
		show := func(list []model.Comment) {
			for _, c := range list {
				if seen[c.ID] || comments.IsTemporaryID(c.ID) {
					continue
				}
				seen[c.ID] = true
				printComment(c)
			}
		}

		fmt.Printf("👀 Watching %s %s (Ctrl+C to stop)\n\n", el.Type, shortID(el.ID))
		show(thread.Comments())
		changed := make(chan struct{}, 1)
		off := thread.OnChange(func([]model.Comment) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer off()

		for {
			select {
			case <-ctx.Done():
				fmt.Println()
				return nil
			case <-changed:
				show(thread.Comments())
			}
		}
	})
}
