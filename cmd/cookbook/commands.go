package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/app"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/logging"
)

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if _, err := unwrap(session.Login(cmd.Context(), args[0], pw)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			if err := session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Long: `Create an account. The server emails a confirmation link; confirm it
(or run "cookbook confirm") before logging in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if _, err := unwrap(session.Client.Register(cmd.Context(), args[0], pw)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Check your email to confirm it.")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func (c *cli) confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <user-id> <code>",
		Short: "Confirm an account with the emailed code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			if _, err := unwrap(session.Client.ConfirmEmail(cmd.Context(), args[0], args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email confirmed")
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "resend <email>",
		Short: "Send the confirmation email again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			if _, err := unwrap(session.Client.ResendConfirmationEmail(cmd.Context(), args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Confirmation email sent")
			return nil
		},
	})
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			pair, err := session.Tokens.Load(cmd.Context())
			if err != nil {
				return err
			}
			if pair.AccessToken == "" {
				return errors.New("not signed in")
			}
			info, err := unwrap(session.Client.GetUserInfo(cmd.Context()))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Email: %s\n", info.Email)
			fmt.Fprintf(out, "Confirmed: %t\n", info.IsEmailConfirmed)
			// Re-read: the call above may have refreshed the pair.
			if pair, err = session.Tokens.Load(cmd.Context()); err == nil {
				if claims, err := api.InspectToken(pair.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
					fmt.Fprintf(out, "Token expires: %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
				}
			}
			return nil
		},
	}
}

func (c *cli) cookbooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cookbooks",
		Aliases: []string{"cb"},
		Short:   "List and manage cookbooks",
	}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List your cookbooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			books, err := unwrap(session.Client.GetCookbooks(cmd.Context(), page, size))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), books)
			}
			rows := make([][]string, 0, len(books.Items))
			for _, b := range books.Items {
				role := "member"
				if b.IsCreator {
					role = "owner"
				}
				rows = append(rows, []string{strconv.Itoa(b.ID), b.Title, strconv.Itoa(b.RecipeCount), strconv.Itoa(b.MembersCount), role})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Recipes", "Members", "Role"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d total)\n", books.PageNumber, max(books.TotalPages, 1), books.TotalCount)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&size, "size", 10, "page size")

	var image string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a cookbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			in := api.CreateCookbookInput{Title: args[0]}
			if image != "" {
				in.Image = &image
			}
			created, err := unwrap(session.Client.CreateCookbook(cmd.Context(), in))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created cookbook %d\n", created.CookbookID)
			return nil
		},
	}
	create.Flags().StringVar(&image, "image", "", "stored image name from \"cookbook upload\"")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a cookbook you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			session, err := c.open()
			if err != nil {
				return err
			}
			if _, err := unwrap(session.Client.DeleteCookbook(cmd.Context(), id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted cookbook %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

func (c *cli) recipesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Browse recipes",
	}

	var search string
	var page, size int
	list := &cobra.Command{
		Use:   "list <cookbook-id>",
		Short: "List a cookbook's recipes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			session, err := c.open()
			if err != nil {
				return err
			}
			recipes, err := unwrap(session.Client.GetRecipes(cmd.Context(), id, search, page, size))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), recipes)
			}
			rows := make([][]string, 0, len(recipes.Items))
			for _, r := range recipes.Items {
				rows = append(rows, []string{strconv.Itoa(r.ID), r.Title})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Title"}, rows)
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "filter by title")
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&size, "size", 10, "page size")

	show := &cobra.Command{
		Use:   "show <recipe-id>",
		Short: "Print one recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			session, err := c.open()
			if err != nil {
				return err
			}
			recipe, err := unwrap(session.Client.GetRecipe(cmd.Context(), id))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), recipe)
			}
			printRecipe(cmd.OutOrStdout(), recipe)
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (c *cli) inviteCmd() *cobra.Command {
	var link bool
	cmd := &cobra.Command{
		Use:   "invite <cookbook-id> [email]",
		Short: "Invite someone to a cookbook",
		Long: `Invite an email address to a cookbook, or with --link create a
shareable token that anyone can redeem with "cookbook join".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !link && len(args) != 2 {
				return errors.New("an email is required unless --link is set")
			}
			session, err := c.open()
			if err != nil {
				return err
			}
			if link {
				out, err := unwrap(session.Client.CreateInvitationLink(cmd.Context(), id))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out.Token)
				return nil
			}
			out, err := unwrap(session.Client.CreateInvitation(cmd.Context(), id, args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invitation %d sent to %s\n", out.InvitationID, strings.TrimSpace(args[1]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&link, "link", false, "create a shareable invitation link")
	return cmd
}

func (c *cli) invitationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitations",
		Short: "List and answer invitations",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List invitations addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			invites, err := unwrap(session.Client.GetInvitations(cmd.Context(), api.InvitationStatus(status), 1, 50))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), invites)
			}
			rows := make([][]string, 0, len(invites.Items))
			for _, inv := range invites.Items {
				rows = append(rows, []string{strconv.Itoa(inv.ID), inv.CookbookTitle, inv.SenderEmail, inv.Created.Local().Format(time.DateOnly)})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Cookbook", "From", "Sent"}, rows)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", string(api.InvitationActive), "Active, Accepted or Rejected")

	respond := func(use, short string, accept bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <invitation-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				session, err := c.open()
				if err != nil {
					return err
				}
				if _, err := unwrap(session.Client.RespondToInvitation(cmd.Context(), id, accept)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Done")
				return nil
			},
		}
	}

	cmd.AddCommand(list, respond("accept", "Accept an invitation", true), respond("reject", "Decline an invitation", false))
	return cmd
}

func (c *cli) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <token>",
		Short: "Join a cookbook with an invitation link token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.open()
			if err != nil {
				return err
			}
			if _, err := unwrap(session.Client.RespondToInvitationLink(cmd.Context(), args[0], true)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Joined")
			return nil
		},
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload images and print their stored names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]api.ImageFile, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, api.ImageFile{
					Name:        filepath.Base(path),
					ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
					Data:        data,
				})
			}
			session, err := c.open()
			if err != nil {
				return err
			}
			out, err := unwrap(session.Client.UploadImages(cmd.Context(), files))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out.Names)
			}
			for _, name := range out.Names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (c *cli) tuiCmd() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse cookbooks in the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = c.configPath
			opts.EnvFiles = c.envFiles
			opts.Version = version
			return app.Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.PollEvery, "poll", 0, "refresh interval in seconds (default 15)")
	cmd.Flags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/cookbook/prefs.toml)")
	cmd.Flags().StringVar(&opts.LogPath, "log-file", logging.DefaultFilePath, "write logs to this file")
	return cmd
}

func (c *cli) logsCmd() *cobra.Command {
	var path string
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the terminal UI log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := logging.Tail(path, lines)
			if err != nil {
				return err
			}
			for _, line := range out {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", logging.DefaultFilePath, "log file")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines (0 for all)")
	return cmd
}

func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Nothing to show")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func printRecipe(w io.Writer, r api.Recipe) {
	title := lipgloss.NewStyle().Bold(true).Render(r.Title)
	fmt.Fprintln(w, title)
	if r.Summary != "" {
		fmt.Fprintln(w, r.Summary)
	}
	if r.Servings != nil {
		fmt.Fprintf(w, "Serves %d\n", *r.Servings)
	}
	if len(r.Ingredients) > 0 {
		fmt.Fprintln(w, "\nIngredients")
		for _, ing := range r.Ingredients {
			line := "  - " + ing.Name
			if ing.Optional {
				line += " (optional)"
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(r.Directions) > 0 {
		fmt.Fprintln(w, "\nDirections")
		for _, d := range r.Directions {
			fmt.Fprintf(w, "  %d. %s\n", d.Ordinal, d.Text)
		}
	}
}
