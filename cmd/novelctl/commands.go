package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/novelforge/novelforge/internal/autosave"
	"github.com/novelforge/novelforge/internal/client"
	"github.com/novelforge/novelforge/internal/generation"
	"github.com/novelforge/novelforge/internal/reorder"
)

const passwordEnv = "NOVELCTL_PASSWORD"

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with a username or email. The password is read from --password,
then $NOVELCTL_PASSWORD, then the first line of stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				username = c.cfg.Username
			}
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				line, err := bufio.NewReader(c.stdin).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			api := client.New(c.cfg.Server, "", c.cfg.Timeout)
			sess, err := api.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			c.cfg.Username = sess.User.Username
			c.cfg.Token = sess.Token
			c.cfg.TokenExpires = sess.ExpiresAt
			if err := saveConfig(c.cfgPath, c.cfg); err != nil {
				return err
			}
			c.printf("logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.cfg.Token = ""
			c.cfg.TokenExpires = time.Time{}
			return saveConfig(c.cfgPath, c.cfg)
		},
	}
}

func newNovelsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "novels", Short: "Work with novels"}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List your novels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			items, err := api.ListNovels(cmd.Context(), search)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(items)
			}
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tWORDS\tCHAPTERS")
			for _, n := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", n.ID, n.Title, n.Status, n.WordCount, n.ChapterCount)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVarP(&search, "search", "q", "", "filter by title")
	cmd.AddCommand(list)
	return cmd
}

func newChaptersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "chapters", Short: "Work with chapters"}
	cmd.AddCommand(newChaptersListCmd(c), newChaptersShowCmd(c), newChaptersEditCmd(c), newChaptersMoveCmd(c))
	return cmd
}

func newChaptersListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list NOVEL_ID",
		Short: "List a novel's chapters in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			novelID, err := parseID("novel", args[0])
			if err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			list, err := api.ListChapters(cmd.Context(), novelID)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(list)
			}
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tID\tTITLE\tSTATUS\tWORDS")
			for _, ch := range list {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\n", ch.Order, ch.ID, ch.Title, ch.Status, ch.WordCount)
			}
			return tw.Flush()
		},
	}
}

func newChaptersShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show CHAPTER_ID",
		Short: "Print a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("chapter", args[0])
			if err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			ch, err := api.GetChapter(cmd.Context(), id)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(ch)
			}
			c.printf("# %s\n\n%s", ch.Title, ch.Content)
			if !strings.HasSuffix(ch.Content, "\n") {
				c.printf("\n")
			}
			return nil
		},
	}
}

var editableFields = map[string]bool{
	client.FieldTitle:   true,
	client.FieldSummary: true,
	client.FieldContent: true,
	client.FieldNotes:   true,
	client.FieldStatus:  true,
}

func newChaptersEditCmd(c *cli) *cobra.Command {
	var (
		field      string
		file       string
		appendMode bool
		delay      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "edit CHAPTER_ID",
		Short: "Stream text into a chapter field with autosave",
		Long: `edit reads lines from --file (or stdin) into one chapter field. Saves
are debounced: a pause of --delay after the last line saves the chapter, and
whatever is still pending at end of input is flushed before exiting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("chapter", args[0])
			if err != nil {
				return err
			}
			if !editableFields[field] {
				return fmt.Errorf("unknown field %q", field)
			}
			api, err := c.api()
			if err != nil {
				return err
			}

			in := c.stdin
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open %s: %w", file, err)
				}
				defer f.Close()
				in = f
			}
			if delay <= 0 {
				delay = c.cfg.AutosaveDelay
			}

			ch, err := api.GetChapter(cmd.Context(), id)
			if err != nil {
				return err
			}
			initial := client.ChapterFields(ch)
			docID := strconv.FormatInt(id, 10)
			ctrl := autosave.New(cmd.Context(), docID, initial, client.ChapterSaver{Client: api}, autosave.Options{
				Delay:  delay,
				Logger: c.logger,
				OnStatus: func(s autosave.Status) {
					c.logger.Debug("autosave", slog.String("chapter", docID), slog.String("status", s.String()))
				},
			})
			defer ctrl.Close()

			value := ""
			if appendMode {
				value = initial[field]
			}
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 64*1024), 4<<20)
			for scanner.Scan() {
				value += scanner.Text() + "\n"
				ctrl.Set(field, value)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			if err := ctrl.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("save chapter %d: %w", id, err)
			}
			c.printf("saved chapter %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", client.FieldContent, "field to edit: title, summary, content, notes or status")
	cmd.Flags().StringVar(&file, "file", "-", "input file, - for stdin")
	cmd.Flags().BoolVarP(&appendMode, "append", "a", false, "append to the field instead of replacing it")
	cmd.Flags().DurationVar(&delay, "delay", 0, "autosave quiet period (default from config)")
	return cmd
}

func newChaptersMoveCmd(c *cli) *cobra.Command {
	var position int
	cmd := &cobra.Command{
		Use:   "move NOVEL_ID CHAPTER_ID --to POSITION",
		Short: "Move a chapter to a 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			novelID, err := parseID("novel", args[0])
			if err != nil {
				return err
			}
			chapterID, err := parseID("chapter", args[1])
			if err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			list, err := api.ListChapters(cmd.Context(), novelID)
			if err != nil {
				return err
			}
			if position < 1 || position > len(list) {
				return fmt.Errorf("--to must be between 1 and %d", len(list))
			}

			ctrl := reorder.NewController(client.ChapterItems(list), api.ChapterOrder(novelID), c.logger)
			source := -1
			items := ctrl.Items()
			for i, it := range items {
				if it.ID == chapterID {
					source = i
					break
				}
			}
			if source < 0 {
				return fmt.Errorf("chapter %d is not part of novel %d", chapterID, novelID)
			}
			if err := ctrl.BeginDrag(items[source], source); err != nil {
				return err
			}
			moved, err := ctrl.Drop(cmd.Context(), position-1)
			if err != nil {
				return fmt.Errorf("save chapter order: %w", err)
			}
			if !moved {
				c.printf("chapter %d is already at position %d\n", chapterID, position)
				return nil
			}
			if c.jsonOutput {
				return c.printJSON(ctrl.Items())
			}
			c.printf("moved chapter %d to position %d\n", chapterID, position)
			return nil
		},
	}
	cmd.Flags().IntVar(&position, "to", 0, "target position, starting at 1")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		instructions string
		words        int
		key          string
	)
	cmd := &cobra.Command{
		Use:   "generate NOVEL_ID",
		Short: "Queue an AI drafted chapter",
		Long: `generate queues a draft for the next chapter of a novel. Re-running with
the same --key returns the original task instead of queueing another one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			novelID, err := parseID("novel", args[0])
			if err != nil {
				return err
			}
			api, err := c.api()
			if err != nil {
				return err
			}
			if key == "" {
				key = uuid.NewString()
			}
			ticket, err := api.Generate(cmd.Context(), novelID, generation.GenerateRequest{
				Instructions: instructions,
				TargetWords:  words,
			}, key)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(ticket)
			}
			note := ""
			if ticket.Replayed {
				note = " (already queued)"
			}
			c.printf("task %s %s%s\nidempotency key %s\n", ticket.TaskID, ticket.State, note, key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "guidance for the draft")
	cmd.Flags().IntVarP(&words, "words", "w", 0, "target word count")
	cmd.Flags().StringVar(&key, "key", "", "idempotency key (default random)")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status TASK_ID",
		Short: "Show the state of a generation task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			st, err := api.GenerationStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(st)
			}
			c.printf("task %s: %s (retried %d/%d)\n", st.TaskID, st.State, st.Retried, st.MaxRetry)
			if st.ChapterID > 0 {
				c.printf("chapter %d\n", st.ChapterID)
			}
			if st.LastError != "" {
				c.printf("last error: %s\n", st.LastError)
			}
			return nil
		},
	}
}

func newDashboardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show writing statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.api()
			if err != nil {
				return err
			}
			stats, err := api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(stats)
			}
			c.printf("novels %d  chapters %d  characters %d  world notes %d  words %d\n",
				stats.Novels, stats.Chapters, stats.Characters, stats.WorldNotes, stats.TotalWords)
			if len(stats.RecentNovels) > 0 {
				tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "\nRECENT\tSTATUS\tWORDS\tUPDATED")
				for _, n := range stats.RecentNovels {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", n.Title, n.Status, n.WordCount, n.UpdatedAt.Format(time.DateOnly))
				}
				return tw.Flush()
			}
			return nil
		},
	}
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
