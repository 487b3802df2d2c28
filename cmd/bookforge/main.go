package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "bookforge",
	Short: "BookForge CLI",
	Long:  "A CLI for the BookForge book-generation server.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(identityCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(booksCmd())
	rootCmd.AddCommand(sysCmd())
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		// Not a terminal (piped input); fall back to a line read.
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text()), nil
	}
	return string(pw), nil
}

// --- identity ---

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "identity", Short: "Manage the active profile and its wallet"}

	loginCmd := &cobra.Command{
		Use:   "login <name> <email>",
		Short: "Log a profile in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/identity/login", map[string]any{
				"name": args[0], "email": args[1],
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Log the active profile out",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/identity/logout", nil); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Logged out.")
			return nil
		},
	}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the active profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/identity/profile")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [output-file]",
		Short: "Export the profile to an encrypted wallet file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Wallet password: ")
			if err != nil {
				return err
			}
			client := newClient()
			raw, err := client.postRaw("/v1/identity/export", map[string]any{"password": password})
			if err != nil {
				printError(err.Error())
				return nil
			}
			out := "identity.iabooks"
			if len(args) > 0 {
				out = args[0]
			}
			if err := os.WriteFile(out, raw, 0600); err != nil {
				return err
			}
			printSuccess("Wallet written to " + out)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <wallet-file>",
		Short: "Restore a profile from an encrypted wallet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			password, err := readPassword("Wallet password: ")
			if err != nil {
				return err
			}
			client := newClient()
			result, err := client.post("/v1/identity/import", map[string]any{
				"password": password,
				"artifact": base64.StdEncoding.EncodeToString(raw),
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	favoriteCmd := &cobra.Command{
		Use:   "favorite <book-id>",
		Short: "Toggle a book's favorite state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/identity/favorites/"+args[0], nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	progressCmd := &cobra.Command{
		Use:   "progress <book-id> <chapter-id> <percentage>",
		Short: "Record reading progress for a book",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("percentage must be a number: %w", err)
			}
			client := newClient()
			result, err := client.post("/v1/identity/progress", map[string]any{
				"bookId": args[0], "chapterId": args[1], "percentage": pct,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	cmd.AddCommand(loginCmd, logoutCmd, profileCmd, exportCmd, importCmd, favoriteCmd, progressCmd)
	return cmd
}

// --- settings ---

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Read and write server settings"}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/settings/" + args[0])
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting (e.g. gemini_api_keys \"k1,k2\")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.put("/v1/settings/"+args[0], map[string]any{"value": args[1]})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}

// --- generate ---

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "generate", Short: "Run generation operations"}

	planCmd := &cobra.Command{
		Use:   "plan <topic>",
		Short: "Generate a book outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookType, _ := cmd.Flags().GetString("type")
			language, _ := cmd.Flags().GetString("language")
			context, _ := cmd.Flags().GetString("context")
			client := newClient()
			result, err := client.post("/v1/generate/plan", map[string]any{
				"topic": args[0], "type": bookType, "language": language, "extraContext": context,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	planCmd.Flags().String("type", "ebook", "Book size: apostila, ebook, livro")
	planCmd.Flags().String("language", "pt", "Target language code")
	planCmd.Flags().String("context", "", "Extra context for the outline")

	chapterCmd := &cobra.Command{
		Use:   "chapter <book-title> <chapter-title> <summary>",
		Short: "Write one chapter's content",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookType, _ := cmd.Flags().GetString("type")
			language, _ := cmd.Flags().GetString("language")
			client := newClient()
			result, err := client.post("/v1/generate/chapter", map[string]any{
				"bookTitle": args[0], "chapterTitle": args[1], "chapterSummary": args[2],
				"type": bookType, "language": language,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	chapterCmd.Flags().String("type", "ebook", "Book size: apostila, ebook, livro")
	chapterCmd.Flags().String("language", "pt", "Target language code")

	coverCmd := &cobra.Command{
		Use:   "cover <prompt>",
		Short: "Generate cover art (managed backend with public fallback)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/generate/cover", map[string]any{"prompt": args[0]})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	imageCmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image with an explicit backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _ := cmd.Flags().GetString("provider")
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			client := newClient()
			result, err := client.post("/v1/generate/image", map[string]any{
				"prompt": args[0], "provider": backend, "width": width, "height": height,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	imageCmd.Flags().String("provider", "flux", "Backend: gemini, flux, turbo")
	imageCmd.Flags().Int("width", 800, "Image width")
	imageCmd.Flags().Int("height", 1200, "Image height")

	chatCmd := &cobra.Command{
		Use:   "chat <room> <topic> <message>",
		Short: "Generate a reading-room reply",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/generate/chat", map[string]any{
				"roomName": args[0], "roomTopic": args[1], "message": args[2],
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	metadataCmd := &cobra.Command{
		Use:   "metadata <title> <description>",
		Short: "Generate tags and a category for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			language, _ := cmd.Flags().GetString("language")
			client := newClient()
			result, err := client.post("/v1/generate/metadata", map[string]any{
				"title": args[0], "description": args[1], "language": language,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	metadataCmd.Flags().String("language", "pt", "Target language code")

	coverPromptCmd := &cobra.Command{
		Use:   "cover-prompt <title> <description>",
		Short: "Generate an art-direction prompt for a cover",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookType, _ := cmd.Flags().GetString("type")
			client := newClient()
			result, err := client.post("/v1/generate/cover-prompt", map[string]any{
				"title": args[0], "description": args[1], "type": bookType,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	coverPromptCmd.Flags().String("type", "ebook", "Book size: apostila, ebook, livro")

	cmd.AddCommand(planCmd, chapterCmd, coverCmd, imageCmd, chatCmd, metadataCmd, coverPromptCmd)
	return cmd
}

// --- books ---

func booksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "books", Short: "Browse stored books"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			public, _ := cmd.Flags().GetBool("public")
			limit, _ := cmd.Flags().GetInt("limit")
			path := "/v1/books?limit=" + strconv.Itoa(limit)
			if public {
				path += "&public=true"
			}
			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	listCmd.Flags().Bool("public", false, "Only public books")
	listCmd.Flags().Int("limit", 50, "Maximum number of books")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/books/" + args[0])
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/books/" + args[0]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Deleted.")
			return nil
		},
	}

	cmd.AddCommand(listCmd, getCmd, deleteCmd)
	return cmd
}

// --- sys ---

func sysCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sys", Short: "Server diagnostics"}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/sys/health")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	genLogCmd := &cobra.Command{
		Use:   "generation-log",
		Short: "Show recent generation attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, _ := cmd.Flags().GetString("operation")
			outcome, _ := cmd.Flags().GetString("outcome")
			limit, _ := cmd.Flags().GetInt("limit")
			path := "/v1/sys/generation-log?limit=" + strconv.Itoa(limit)
			if operation != "" {
				path += "&operation=" + operation
			}
			if outcome != "" {
				path += "&outcome=" + outcome
			}
			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	genLogCmd.Flags().String("operation", "", "Filter by operation")
	genLogCmd.Flags().String("outcome", "", "Filter by outcome")
	genLogCmd.Flags().Int("limit", 50, "Maximum number of records")

	auditLogCmd := &cobra.Command{
		Use:   "audit-log",
		Short: "Show recent request audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			limit, _ := cmd.Flags().GetInt("limit")
			query := "/v1/sys/audit-log?limit=" + strconv.Itoa(limit)
			if path != "" {
				query += "&path=" + path
			}
			client := newClient()
			result, err := client.get(query)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	auditLogCmd.Flags().String("path", "", "Filter by request path")
	auditLogCmd.Flags().Int("limit", 50, "Maximum number of entries")

	cmd.AddCommand(healthCmd, genLogCmd, auditLogCmd)
	return cmd
}
