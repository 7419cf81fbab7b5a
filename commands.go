package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/scoring"
	"github.com/omriShneor/engage_ai/internal/vectorstore"
)

func requestContext(conversationID, customerID, channel string) analysis.RequestContext {
	return analysis.RequestContext{
		TenantID:       tenantID,
		ConversationID: conversationID,
		CustomerID:     customerID,
		ChannelType:    channel,
	}
}

func analyzeCmd(a **app) *cobra.Command {
	var (
		types          []string
		conversationID string
		customerID     string
		channel        string
		history        string
	)

	cmd := &cobra.Command{
		Use:   "analyze [content]",
		Short: "Run analysis types over content (reads stdin when no content is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args)
			if err != nil {
				return err
			}

			req := analysis.Request{Content: content}
			if len(types) == 0 {
				req.Types = analysis.AllTypes()
			}
			for _, name := range types {
				t, err := analysis.ParseType(name)
				if err != nil {
					return err
				}
				req.Types = append(req.Types, t)
			}

			rctx := requestContext(conversationID, customerID, channel)
			rctx.CustomerHistory = history
			req.Context = &rctx

			result, err := (*a).orchestrator.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringSliceVar(&types, "types", nil, "Analysis types, comma separated (default all)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id")
	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id")
	cmd.Flags().StringVar(&channel, "channel", "", "Channel type")
	cmd.Flags().StringVar(&history, "history", "", "Customer history summary")
	return cmd
}

func autoReplyCmd(a **app) *cobra.Command {
	var (
		prior          []string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "auto-reply [content]",
		Short: "Generate a reply and follow-up actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args)
			if err != nil {
				return err
			}
			rctx := requestContext(conversationID, "", "")
			return printJSON((*a).orchestrator.GenerateAutoReply(cmd.Context(), content, prior, &rctx))
		},
	}

	cmd.Flags().StringArrayVar(&prior, "prior", nil, "Prior message (repeatable)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id")
	return cmd
}

func triageCmd(a **app) *cobra.Command {
	var subject, channel, history string

	cmd := &cobra.Command{
		Use:   "triage [content]",
		Short: "Classify priority and category of a support request",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args)
			if err != nil {
				return err
			}
			return printJSON((*a).orchestrator.PerformTriage(cmd.Context(), analysis.TriageInput{
				TenantID:        tenantID,
				Content:         content,
				Subject:         subject,
				Channel:         channel,
				CustomerHistory: history,
			}))
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Request subject")
	cmd.Flags().StringVar(&channel, "channel", "", "Channel type")
	cmd.Flags().StringVar(&history, "history", "", "Customer history summary")
	return cmd
}

func summarizeCmd(a **app) *cobra.Command {
	var maxBullets int

	cmd := &cobra.Command{
		Use:   "summarize [message...]",
		Short: "Summarize a thread, one message per argument or stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			messages := args
			if len(messages) == 0 {
				content, err := readContent(nil)
				if err != nil {
					return err
				}
				messages = strings.Split(content, "\n")
			}
			return printJSON((*a).orchestrator.SummarizeThread(cmd.Context(), tenantID, messages, maxBullets))
		},
	}

	cmd.Flags().IntVar(&maxBullets, "max-bullets", 0, "Maximum bullet points (default 5, max 10)")
	return cmd
}

func rewriteCmd(a **app) *cobra.Command {
	var tone, format string

	cmd := &cobra.Command{
		Use:   "rewrite [content]",
		Short: "Rewrite text in a tone and format",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args)
			if err != nil {
				return err
			}
			return printJSON((*a).orchestrator.RewriteText(cmd.Context(), tenantID, content, tone, format))
		},
	}

	cmd.Flags().StringVar(&tone, "tone", "", "Target tone (default professional)")
	cmd.Flags().StringVar(&format, "format", "", "Target format")
	return cmd
}

func grammarCmd(a **app) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "grammar [content]",
		Short: "Fix spelling and grammar",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args)
			if err != nil {
				return err
			}
			return printJSON((*a).orchestrator.FixGrammar(cmd.Context(), tenantID, content, language))
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Language of the text")
	return cmd
}

func coachCmd(a **app) *cobra.Command {
	var callID, customerID string

	cmd := &cobra.Command{
		Use:   "coach [transcript]",
		Short: "Critique a sales call transcript and record the analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readContent(args)
			if err != nil {
				return err
			}
			rctx := requestContext("", customerID, "call")
			rctx.CallID = callID

			result, coaching, err := analysis.NewCoaching((*a).orchestrator).AnalyzeCall(cmd.Context(), rctx, transcript)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"analysisId": result.AnalysisID,
				"coaching":   coaching,
			})
		},
	}

	cmd.Flags().StringVar(&callID, "call", "", "Call id")
	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id")
	return cmd
}

func leadScoreCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "lead-score",
		Short: "Score a lead read as JSON from --file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := os.Stdin
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open lead file: %w", err)
				}
				defer f.Close()
				in = f
			}

			var lead scoring.Lead
			if err := json.NewDecoder(in).Decode(&lead); err != nil {
				return fmt.Errorf("failed to decode lead: %w", err)
			}
			return printJSON(scoring.ComputeLeadScore(lead, nil))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Lead JSON file")
	return cmd
}

func healthCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "health [customer-id...]",
		Short: "Compute customer health; every tenant customer when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			scorer := scoring.NewHealthScorer((*a).db, (*a).logger)

			if len(args) == 1 {
				score, err := scorer.ComputeCustomerHealth(cmd.Context(), tenantID, args[0])
				if err != nil {
					return err
				}
				return printJSON(score)
			}

			ids := args
			if len(ids) == 0 {
				var err error
				ids, err = (*a).db.ListCustomerIDs(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
			}
			return printJSON(scorer.ComputeCustomerHealthBatch(cmd.Context(), tenantID, ids))
		},
	}
}

func insightsCmd(a **app) *cobra.Command {
	var timeRange string

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Trend rollups over stored analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			insights, err := (*a).ledger.Insights(cmd.Context(), tenantID, timeRange)
			if err != nil {
				return err
			}
			return printJSON(insights)
		},
	}

	cmd.Flags().StringVar(&timeRange, "range", "7d", "Time range: 24h, 7d, 30d or 90d")
	return cmd
}

func recentCmd(a **app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the latest stored analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := (*a).ledger.Recent(cmd.Context(), tenantID, limit)
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum analyses (max 100)")
	return cmd
}

func searchCmd(a **app) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the tenant's knowledge articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readContent(args)
			if err != nil {
				return err
			}
			matches, err := (*a).store.Search(cmd.Context(), tenantID, query, topK)
			if err != nil {
				return err
			}
			return printJSON(matches)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", vectorstore.DefaultTopK, "Number of matches")
	return cmd
}
