package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/papyr-dev/papyr-store/pkg/schema"
	"github.com/papyr-dev/papyr-store/pkg/sdk"
)

var (
	serverURL string
	token     string
	admin     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds an SDK client from the global flags and environment.
func newClient() *sdk.Client {
	addr := serverURL
	if addr == "" {
		addr = os.Getenv("PAPYR_STORE_URL")
	}
	if addr == "" {
		addr = "http://localhost:3030"
	}

	client := sdk.New(addr)
	if token != "" {
		client.SetToken(token)
	} else if t := os.Getenv("PAPYR_TOKEN"); t != "" {
		client.SetToken(t)
	}
	client.SetAdmin(admin)
	return client
}

func parseBody(raw string) (schema.Record, error) {
	var body schema.Record
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}
	return body, nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(out))
}

var rootCmd = &cobra.Command{
	Use:   "papyr",
	Short: "Client for a papyr-store server",
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collection names",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newClient().Collections()
		if err != nil {
			return err
		}
		printJSON(names)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List records in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		for _, name := range []string{"where", "sortBy", "offset", "pageSize", "distinct", "select", "load"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				params.Set(name, v)
			}
		}
		records, err := newClient().List(args[0], params)
		if err != nil {
			return err
		}
		printJSON(records)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count <collection>",
	Short: "Count records in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if v, _ := cmd.Flags().GetString("where"); v != "" {
			params.Set("where", v)
		}
		n, err := newClient().Count(args[0], params)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Fetch a record by ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := newClient().Get(args[0], args[1])
		if err != nil {
			return err
		}
		printJSON(record)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <collection> <json>",
	Short: "Create a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := parseBody(args[1])
		if err != nil {
			return err
		}
		record, err := newClient().Create(args[0], body)
		if err != nil {
			return err
		}
		printJSON(record)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <collection> <id> <json>",
	Short: "Replace a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := parseBody(args[2])
		if err != nil {
			return err
		}
		record, err := newClient().Replace(args[0], args[1], body)
		if err != nil {
			return err
		}
		printJSON(record)
		return nil
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <collection> <id> <json>",
	Short: "Partially update a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := parseBody(args[2])
		if err != nil {
			return err
		}
		record, err := newClient().Merge(args[0], args[1], body)
		if err != nil {
			return err
		}
		printJSON(record)
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del <collection> <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := newClient().Delete(args[0], args[1])
		if err != nil {
			return err
		}
		printJSON(record)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <json>",
	Short: "Create a user account and print its session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := parseBody(args[0])
		if err != nil {
			return err
		}
		user, err := newClient().Register(body)
		if err != nil {
			return err
		}
		printJSON(user)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <json>",
	Short: "Authenticate and print the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := parseBody(args[0])
		if err != nil {
			return err
		}
		user, err := newClient().Login(body)
		if err != nil {
			return err
		}
		printJSON(user)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Logout(); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

var flagCmd = &cobra.Command{
	Use:   "flag <name> [on|off]",
	Short: "Read or toggle a server feature flag",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if len(args) == 2 {
			return client.SetFlag(args[0], args[1] == "on")
		}
		value, err := client.GetFlag(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default $PAPYR_STORE_URL or http://localhost:3030)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "session access token (default $PAPYR_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&admin, "admin", false, "bypass access rules with the admin header")

	for _, name := range []string{"where", "sortBy", "offset", "pageSize", "distinct", "select", "load"} {
		listCmd.Flags().String(name, "", name+" query parameter")
	}
	countCmd.Flags().String("where", "", "where query parameter")

	rootCmd.AddCommand(collectionsCmd, listCmd, countCmd, getCmd, addCmd,
		setCmd, mergeCmd, delCmd, registerCmd, loginCmd, logoutCmd, flagCmd)
}
