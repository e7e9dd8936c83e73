package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"garabu.org/internal/auth"
	"garabu.org/internal/ledger/remote"
	"garabu.org/internal/obs"
	"garabu.org/internal/push"
	"garabu.org/internal/store"
	"garabu.org/internal/stream"
	"garabu.org/internal/submit"
)

// garabu records one transaction against a household-ledger backend from
// the command line. Useful for smoke-testing a deployment and for scripted
// imports.
func main() {
	_ = godotenv.Load()
	obs.Init()

	var (
		kind     = flag.String("type", "EXPENSE", "transaction type: INCOME, EXPENSE or TRANSFER")
		bookID   = flag.Int64("book", 0, "book id (required)")
		amount   = flag.String("amount", "", "amount in minor units, grouping separators allowed")
		desc     = flag.String("desc", "", "description")
		memo     = flag.String("memo", "", "optional memo")
		date     = flag.String("date", time.Now().Format("2006-01-02"), "calendar date (YYYY-MM-DD)")
		category = flag.String("category", "", "category name (income/expense)")
		payment  = flag.String("payment", "", "payment method name (income/expense)")
		assetID  = flag.Int64("asset", 0, "asset id behind the payment method")
		from     = flag.Int64("from", 0, "transfer source asset id")
		to       = flag.Int64("to", 0, "transfer destination asset id")
		fromName = flag.String("from-name", "", "transfer source asset display name")
		toName   = flag.String("to-name", "", "transfer destination asset display name")
		spender  = flag.String("spender", "", "spender (defaults to the token's display name)")
		currency = flag.String("currency", "", "currency code (defaults to the book's base currency)")
		quiet    = flag.Bool("quiet", false, "skip sync broadcast and push alert")
	)
	flag.Parse()

	base := os.Getenv("GARABU_API_BASE")
	if base == "" {
		base = "http://localhost:8080"
	}
	tokenPath := os.Getenv("GARABU_TOKEN_FILE")
	if tokenPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("resolve home dir: %v", err)
		}
		tokenPath = home + "/.garabu/token"
	}

	tokens := auth.NewFileStore(tokenPath)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			log.Fatalf("no auth token at %s; sign in first", tokenPath)
		}
		log.Fatalf("read token: %v", err)
	}
	principal, err := auth.Inspect(token)
	if err != nil {
		log.Fatalf("inspect token: %v", err)
	}
	ctx = auth.ContextWithPrincipal(ctx, principal)

	api := remote.New(base, tokens)
	st := store.New()

	var notifier submit.Notifier
	var pusher submit.Pusher
	if !*quiet {
		notifier = stream.NewNotifier(base, tokens)
		pusher = push.NewDispatcher(base, tokens)
	}
	flow := submit.New(api, st, nil, notifier, pusher)

	form := submit.Form{
		Kind:          submit.Kind(strings.ToUpper(*kind)),
		BookID:        *bookID,
		Amount:        *amount,
		Description:   *desc,
		Memo:          *memo,
		Date:          *date,
		Category:      *category,
		Payment:       *payment,
		AssetID:       *assetID,
		Spender:       *spender,
		Currency:      *currency,
		FromAssetID:   *from,
		ToAssetID:     *to,
		FromAssetName: *fromName,
		ToAssetName:   *toName,
	}

	res, err := flow.Submit(ctx, form)
	if err != nil {
		var verr *submit.ValidationError
		if errors.As(err, &verr) {
			for _, field := range verr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, verr.Reasons[field])
			}
			log.Fatalf("form invalid (first offending field: %s)", verr.First())
		}
		if errors.Is(err, remote.ErrDuplicate) {
			log.Fatalf("rejected as duplicate: %v", err)
		}
		if errors.Is(err, remote.ErrUnavailable) {
			log.Fatalf("backend unreachable: %v", err)
		}
		log.Fatalf("submit: %v", err)
	}

	switch {
	case res.Transfer.ID != 0:
		fmt.Printf("transfer %d recorded: %s -> %s, amount %d\n",
			res.Transfer.ID, name(*fromName, *from), name(*toName, *to), res.Transfer.Amount)
	default:
		fmt.Printf("entry %d recorded: %s %d (%s)\n",
			res.Entry.ID, res.Entry.AmountType, res.Entry.Amount, res.Entry.Description)
	}
	if res.Asset.ID != 0 {
		fmt.Printf("asset %q balance: %d\n", res.Asset.Name, res.Asset.Balance)
	}
	if !res.BalanceSettled {
		fmt.Println("warning: balance update failed; the balance will catch up on the next fetch")
	}
}

func name(display string, id int64) string {
	if display != "" {
		return display
	}
	return fmt.Sprintf("asset %d", id)
}
