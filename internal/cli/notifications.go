package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "Show mentions and other notifications",
	RunE:    runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [notification...]",
	Short: "Mark notifications as read (all unread when none are given)",
	RunE:  runNotificationsRead,
}

var notificationsUnread bool

func init() {
	notificationsCmd.Flags().BoolVarP(&notificationsUnread, "unread", "u", false, "Only unread notifications")
	notificationsCmd.AddCommand(notificationsReadCmd)
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}

	list, err := client.ListNotifications(context.Background(), notificationsUnread)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("📭 Nothing new.")
		return nil
	}

	fmt.Println()
	for _, n := range list {
		marker := "  "
		if !n.Read {
			marker = "• "
		}
		fmt.Printf("%s%s  %s  %s\n", marker, shortID(n.ID), n.CreatedAt.Local().Format("Jan 02 15:04"), n.Message)
		if n.ElementID != "" {
			fmt.Printf("    project %s, element %s\n", shortID(n.ProjectID), shortID(n.ElementID))
		}
	}
	fmt.Println()
	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	unread, err := client.ListNotifications(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	if len(args) > 0 {
		picked := make([]string, 0, len(args))
		for _, ref := range args {
			id, err := matchID(ids, ref)
			if err != nil {
				return fmt.Errorf("notification not found: %w", err)
			}
			picked = append(picked, id)
		}
		ids = picked
	}

	for _, id := range ids {
		if err := client.MarkNotificationRead(ctx, id); err != nil {
			return fmt.Errorf("failed to mark notification read: %w", err)
		}
	}
	fmt.Printf("✓ Marked %d notification(s) read\n", len(ids))
	return nil
}
