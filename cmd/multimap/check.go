package main

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paulokuns/rspamd/pkg/config"
	"github.com/paulokuns/rspamd/pkg/multimap/message"
)

var checkFlags struct {
	messageFile string
	ip          string
	helo        string
	hostname    string
	user        string
	from        string
	rcpts       []string
	format      string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate one message against the configured modules",
	Long: `Evaluate a single message against every configured policy module.

Message headers are read from --message (or stdin when --message is "-");
envelope and connection metadata come from flags.

Examples:
  multimap check --ip 10.0.0.5 --from spammer@example.org
  multimap check --message mail.eml --ip 192.0.2.1 --rcpt a@b.com --format json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.messageFile, "message", "m", "", `message file with RFC 5322 headers ("-" for stdin)`)
	checkCmd.Flags().StringVar(&checkFlags.ip, "ip", "", "sender IP address")
	checkCmd.Flags().StringVar(&checkFlags.helo, "helo", "", "HELO/EHLO hostname")
	checkCmd.Flags().StringVar(&checkFlags.hostname, "hostname", "", "resolved client hostname")
	checkCmd.Flags().StringVar(&checkFlags.user, "user", "", "authenticated username")
	checkCmd.Flags().StringVar(&checkFlags.from, "from", "", "envelope sender")
	checkCmd.Flags().StringArrayVar(&checkFlags.rcpts, "rcpt", nil, "envelope recipient (repeatable)")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	policy, err := config.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer policy.Close()

	msg, err := buildMessage()
	if err != nil {
		return err
	}

	scanID := uuid.NewString()
	logger = logger.With("scan_id", scanID)

	results := make([]moduleResult, 0, len(policy.Rulesets))
	for _, rs := range policy.Rulesets {
		res := rs.Evaluate(cmd.Context(), msg)
		logger.Debug("module evaluated",
			"module", rs.Module(),
			"outcome", res.Outcome.String(),
			"matches", len(res.Matches),
			"elapsed", res.Elapsed,
		)
		results = append(results, newModuleResult(rs.Module(), res))
	}

	switch checkFlags.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			ScanID  string         `json:"scan_id"`
			Results []moduleResult `json:"results"`
		}{ScanID: scanID, Results: results})
	case "text":
		printText(os.Stdout, results)
		return nil
	default:
		return fmt.Errorf("unsupported format %q", checkFlags.format)
	}
}

// buildMessage assembles the evaluation context from flags and the
// optional message file.
func buildMessage() (*message.Message, error) {
	msg := &message.Message{}

	if checkFlags.messageFile != "" {
		r := os.Stdin
		if checkFlags.messageFile != "-" {
			f, err := os.Open(checkFlags.messageFile)
			if err != nil {
				return nil, fmt.Errorf("open message: %w", err)
			}
			defer f.Close()
			r = f
		}
		parsed, err := message.ReadFrom(r)
		if err != nil {
			return nil, err
		}
		msg = parsed
	}

	if checkFlags.ip != "" {
		addr, err := netip.ParseAddr(checkFlags.ip)
		if err != nil {
			return nil, fmt.Errorf("parse --ip: %w", err)
		}
		msg.SenderIP = addr
	}
	msg.Helo = checkFlags.helo
	msg.Hostname = checkFlags.hostname
	msg.User = checkFlags.user
	msg.EnvelopeFrom = checkFlags.from
	msg.Rcpts = checkFlags.rcpts

	return msg, nil
}
