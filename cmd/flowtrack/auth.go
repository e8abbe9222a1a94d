package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheFastest599/flowtrack/internal/api"
)

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read otherwise (pipes, scripts).
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func passwordFromFlagOrPrompt(cmd *cobra.Command, prompt string) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	return promptPassword(prompt)
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		password, err := passwordFromFlagOrPrompt(cmd, "Password: ")
		if err != nil {
			return err
		}

		user, err := sessions.Login(context.Background(), email, password)
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		name, _ := cmd.Flags().GetString("name")
		password, err := passwordFromFlagOrPrompt(cmd, "Password (min 8 chars): ")
		if err != nil {
			return err
		}

		user, err := sessions.Register(context.Background(), &api.RegisterRequest{
			Name:     name,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("registered %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the session locally and invalidate it on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions.Logout(context.Background())
		fmt.Println("logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := sessions.Snapshot()
		if !st.LoggedIn {
			return fmt.Errorf("not logged in")
		}
		if jsonOutput {
			printJSON(st.User)
			return nil
		}
		fmt.Printf("%s <%s> (%s)\n", st.User.Name, st.User.Email, st.User.Role)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := client.Health(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")
	registerCmd.Flags().String("name", "", "display name")
	registerCmd.Flags().String("password", "", "password (prompted when omitted)")
	_ = registerCmd.MarkFlagRequired("name")
}
