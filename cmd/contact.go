package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"itsite/backend"
	"itsite/config"
	"itsite/contact"
	"itsite/i18n"
	"itsite/models"

	"github.com/spf13/cobra"
)

var contactInput models.ContactRequest

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a message through the contact form endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg := config.AppConfig
		svc := contact.NewService(backend.New(cfg.APIBaseURL), log)
		return runContact(ctx, cmd.OutOrStdout(), svc, contactInput)
	},
}

func init() {
	f := contactCmd.Flags()
	f.StringVar(&contactInput.Name, "name", "", "Your name")
	f.StringVar(&contactInput.Email, "email", "", "Reply address")
	f.StringVar(&contactInput.Phone, "phone", "", "Phone number (optional)")
	f.StringVar(&contactInput.Subject, "subject", "", "Subject")
	f.StringVar(&contactInput.Message, "message", "", "Message body")
	rootCmd.AddCommand(contactCmd)
}

func runContact(ctx context.Context, w io.Writer, svc *contact.Service, in models.ContactRequest) error {
	msg, err := svc.Submit(ctx, in)
	if err != nil {
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			return errors.New(formatValidation(verr))
		}
		return err
	}

	if IsJSONOutput() {
		return json.NewEncoder(w).Encode(map[string]string{"message": msg})
	}
	_, err = fmt.Fprintln(w, msg)
	return err
}

func formatValidation(verr *contact.ValidationError) string {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f, i18n.T(i18n.DefaultLang, verr.Fields[f])))
	}
	return "invalid contact form\n" + strings.Join(lines, "\n")
}
