package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smallwat3r/pastebin/internal/domain"
	"github.com/smallwat3r/pastebin/internal/utility"
)

const defaultBaseURL = "http://localhost:3000"

const maxRetries = 5

var retryDelay = 1 * time.Second

var (
	formActionRe = regexp.MustCompile(`<form action="/([A-Za-z0-9-]+)"`)
	textareaRe   = regexp.MustCompile(`(?s)<textarea[^>]*>(.*?)</textarea>`)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var baseURL string

	root := &cobra.Command{
		Use:           "pastebin",
		Short:         "A small CLI to create, read and delete pastes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url",
		utility.Getenv("PASTEBIN_URL", defaultBaseURL), "base URL of the pastebin server")

	c := func() *client { return &client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{}} }

	root.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "Print a fresh paste id",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := c().newID(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Print the content of a paste",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				content, err := c().get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			},
		},
		newPutCmd(c),
		&cobra.Command{
			Use:     "rm <id>",
			Aliases: []string{"delete"},
			Short:   "Delete a paste",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c().delete(cmd.Context(), args[0])
			},
		},
	)
	return root
}

func newPutCmd(c func() *client) *cobra.Command {
	var expiry int

	cmd := &cobra.Command{
		Use:   "put <id> [content]",
		Short: "Write a paste, reading stdin when content is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content string
			if len(args) == 2 {
				content = args[1]
			} else {
				b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), domain.MaxContentSize+1))
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				content = string(b)
			}
			if err := c().put(cmd.Context(), args[0], content, expiry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", c().baseURL, args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&expiry, "expiry", domain.DefaultExpiryMinutes, "lifetime in minutes")
	return cmd
}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) newID(ctx context.Context) (string, error) {
	body, err := c.call(ctx, http.MethodGet, "/", nil, http.StatusOK)
	if err != nil {
		return "", err
	}
	m := formActionRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("no paste id in server response")
	}
	return string(m[1]), nil
}

func (c *client) get(ctx context.Context, id string) (string, error) {
	id, err := checkID(id)
	if err != nil {
		return "", err
	}
	body, err := c.call(ctx, http.MethodGet, "/"+id, nil, http.StatusOK)
	if err != nil {
		return "", err
	}
	m := textareaRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("no paste content in server response")
	}
	return html.UnescapeString(string(m[1])), nil
}

func (c *client) put(ctx context.Context, id, content string, expiry int) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("content", content)
	form.Set("expiry", strconv.Itoa(expiry))
	_, err = c.call(ctx, http.MethodPost, "/"+id, form, http.StatusNoContent)
	return err
}

func (c *client) delete(ctx context.Context, id string) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, http.MethodDelete, "/"+id, nil, http.StatusOK)
	return err
}

func checkID(id string) (string, error) {
	bare, ok := domain.ValidateID(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return bare, nil
}

// call sends one request and returns the response body when the server
// answers with want.
func (c *client) call(ctx context.Context, method, path string, form url.Values, want int) ([]byte, error) {
	resp, err := c.doRequestWithRetry(func() (*http.Request, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}
	return body, nil
}

// doRequestWithRetry handles retries for serverless instances that may need to wake up.
func (c *client) doRequestWithRetry(newReq func() (*http.Request, error)) (*http.Response, error) {
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			log.WithFields(log.Fields{
				"delay":   retryDelay,
				"attempt": i,
			}).Warn("Server returned 502, retrying")
			time.Sleep(retryDelay)
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusBadGateway {
			return resp, nil
		}

		resp.Body.Close()
	}

	return nil, fmt.Errorf("server unavailable after %d retries", maxRetries)
}
