package main

import (
	"github.com/spf13/cobra"
)

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "Manage broadcast subscribers",
}

var subscribersAddCmd = &cobra.Command{
	Use:   "add <chat-id>",
	Short: "Register a chat for the daily broadcast",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		store, err := openSubscribers(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		err = store.Add(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		cmd.Printf("Subscribed %s\n", args[0])

		return nil
	},
}

var subscribersRemoveCmd = &cobra.Command{
	Use:   "remove <chat-id>",
	Short: "Unregister a chat from the daily broadcast",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		store, err := openSubscribers(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		err = store.Remove(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		cmd.Printf("Unsubscribed %s\n", args[0])

		return nil
	},
}

var subscribersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered chats",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		store, err := openSubscribers(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		chatIDs, err := store.All(cmd.Context())
		if err != nil {
			return err
		}

		for _, chatID := range chatIDs {
			cmd.Println(chatID)
		}

		cmd.Printf("%d subscriber(s)\n", len(chatIDs))

		return nil
	},
}

func init() {
	subscribersCmd.AddCommand(subscribersAddCmd)
	subscribersCmd.AddCommand(subscribersRemoveCmd)
	subscribersCmd.AddCommand(subscribersListCmd)
	rootCmd.AddCommand(subscribersCmd)
}
