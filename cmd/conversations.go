package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/guilhermegouw/coach/internal/models"
)

func newConversationsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "List, open and edit your coaching conversations",
		Annotations: map[string]string{
			annotationRoute:        "conversations",
			annotationRequiresAuth: "true",
		},
	}

	cmd.AddCommand(
		newConversationsListCmd(rt),
		newConversationsNewCmd(rt),
		newConversationsShowCmd(rt),
		newConversationsSendCmd(rt),
		newConversationsRenameCmd(rt),
		newConversationsDeleteCmd(rt),
	)
	return cmd
}

func newConversationsListCmd(rt *runtime) *cobra.Command {
	var insertionOrder bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recently updated first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := rt.app.Conversations
			if err := store.FetchConversations(cmd.Context()); err != nil {
				return storeError(err, store.Error())
			}

			convs := store.Sorted()
			if insertionOrder {
				convs = store.Conversations()
			}
			rt.out.Conversations(convs, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&insertionOrder, "server-order", false, "Keep the order the backend returned")
	return cmd
}

func newConversationsNewCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "new <first message>",
		Short: "Start a conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := rt.app.Conversations
			conv, err := store.CreateConversation(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return storeError(err, store.Error())
			}
			rt.out.Success("Created %s: %s", conv.ID, conv.DisplayTitle())
			return nil
		},
	}
}

func newConversationsShowCmd(rt *runtime) *cobra.Command {
	var copyTranscript bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := rt.app.Conversations
			// The summary list supplies the title; a failure here is not fatal.
			if err := store.FetchConversations(cmd.Context()); err != nil {
				store.ClearError()
			}
			if err := store.FetchConversationMessages(cmd.Context(), args[0]); err != nil {
				return storeError(err, store.Error())
			}

			msgs := store.Messages()
			rt.out.Conversation(store.Current(), time.Now())
			rt.out.Messages(msgs)

			if copyTranscript {
				if err := clipboard.WriteAll(transcript(msgs)); err != nil {
					return fmt.Errorf("copying to clipboard: %w", err)
				}
				rt.out.Success("Copied %d messages to the clipboard.", len(msgs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyTranscript, "copy", false, "Copy the transcript to the clipboard")
	return cmd
}

func newConversationsSendCmd(rt *runtime) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "send <id> <message>",
		Short: "Append a message to a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}

			store := rt.app.Conversations
			if err := store.FetchConversations(cmd.Context()); err != nil {
				store.ClearError()
			}
			msg, err := store.AddMessage(cmd.Context(), args[0], strings.Join(args[1:], " "), r)
			if err != nil {
				return storeError(err, store.Error())
			}

			if c, ok := store.Conversation(args[0]); ok {
				rt.out.Success("Sent to %s (%d messages).", c.DisplayTitle(), c.MessageCount)
				return nil
			}
			rt.out.Success("Sent to %s.", msg.ConversationID)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "Message author: user or assistant")
	return cmd
}

func newConversationsRenameCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a conversation's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := rt.app.Conversations
			title := strings.Join(args[1:], " ")
			if err := store.UpdateConversationTitle(cmd.Context(), args[0], title); err != nil {
				return storeError(err, store.Error())
			}
			rt.out.Success("Renamed %s to %q.", args[0], title)
			return nil
		},
	}
}

func newConversationsDeleteCmd(rt *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !newPrompter(rt.stdin, cmd.ErrOrStderr()).Confirm(fmt.Sprintf("Delete conversation %s?", args[0])) {
				rt.out.Println("Cancelled.")
				return nil
			}

			store := rt.app.Conversations
			if err := store.DeleteConversation(cmd.Context(), args[0]); err != nil {
				return storeError(err, store.Error())
			}
			rt.out.Success("Deleted %s.", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// transcript renders messages as plain text for the clipboard.
func transcript(msgs []models.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		speaker := "Coach"
		if m.Role == models.RoleUser {
			speaker = "You"
		}
		fmt.Fprintf(&b, "%s: %s", speaker, m.Content)
	}
	return b.String()
}
