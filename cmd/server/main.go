package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/cardbank/ledger/internal/bank"
	"github.com/cardbank/ledger/internal/events/kafka"
	"github.com/cardbank/ledger/internal/interfaces"
	"github.com/cardbank/ledger/internal/models"
	"github.com/cardbank/ledger/internal/notify"
	"github.com/cardbank/ledger/internal/storage/memory"
	"github.com/cardbank/ledger/internal/storage/postgres"
	"github.com/cardbank/ledger/internal/tlog"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	store, err := openStore(logger)
	if err != nil {
		logger.WithError(err).Fatal("opening store")
	}

	tl := tlog.New(store, logger)
	changes := notify.NewBroadcaster()
	mgr := bank.NewManager(tl, changes, logger)

	var publisher *kafka.Publisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher = kafka.NewPublisher(strings.Split(brokers, ","))
		mgr.SetEventPublisher(publisher)
		logger.WithField("brokers", brokers).Info("kafka publisher enabled")
	}

	tl.LogServerStarted()
	if err := mgr.LoadSaved(); err != nil {
		tl.Close()
		logger.WithError(err).Fatal("loading saved accounts")
	}

	addr := os.Getenv("LEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: router(mgr, tl, changes)}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.WithField("addr", addr).Info("ledger server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server stopped")
	}

	// Drains the durability queue and appends the Server Stop marker.
	tl.Close()
	if publisher != nil {
		_ = publisher.Close()
	}
	logger.Info("transaction log closed")
}

func openStore(logger *logrus.Logger) (interfaces.Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Warn("DATABASE_URL not set; using in-memory store (no durability across restarts)")
		return memory.NewStore(), nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pg := postgres.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pg.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return pg, nil
}

func router(mgr *bank.Manager, tl *tlog.TransactionLog, changes *notify.Broadcaster) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"tlog":   tl.Status(),
		})
	})

	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Password string `json:"password"`
				Cash     int64  `json:"cash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if req.ID == "" {
				http.Error(w, "id is a mandatory field", http.StatusBadRequest)
				return
			}
			acc, err := mgr.Create(req.ID, req.Name, req.Password, req.Cash)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, acc.Snapshot())

		case http.MethodGet:
			matches := mgr.Search(r.URL.Query().Get("q"))
			records := make([]models.AccountRecord, 0, len(matches))
			for _, acc := range matches {
				records = append(records, acc.Snapshot())
			}
			sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
			writeJSON(w, http.StatusOK, records)

		case http.MethodDelete:
			id := r.URL.Query().Get("id")
			if err := mgr.Delete(id); err != nil {
				writeErr(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acc, err := mgr.Query(r.URL.Query().Get("account_id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"account_id": acc.ID,
			"balance":    acc.Cash(),
		})
	})

	mux.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Payer  string `json:"payer"`
			Payee  string `json:"payee"`
			Amount int64  `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := mgr.Transfer(req.Payer, req.Payee, req.Amount); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
	})

	mux.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		handleCashOp(w, r, mgr, func(acc *bank.Account, amount int64) (string, int64) {
			return "deposited", acc.Deposit(amount)
		})
	})

	mux.HandleFunc("/withdraw", func(w http.ResponseWriter, r *http.Request) {
		handleCashOp(w, r, mgr, func(acc *bank.Account, amount int64) (string, int64) {
			return "withdrawn", acc.Withdraw(amount)
		})
	})

	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acc, err := mgr.Query(r.URL.Query().Get("account_id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		entries, err := acc.TransactionHistory()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	mux.HandleFunc("/nuke", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mgr.NukeAll()
		writeJSON(w, http.StatusOK, map[string]string{"status": "nuked"})
	})

	// Server-sent events: one "sync" message per change burst.
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		sub := changes.Subscribe()
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			if err := sub.Wait(r.Context()); err != nil {
				return
			}
			fmt.Fprint(w, "data: {\"sync\": true}\n\n")
			flusher.Flush()
		}
	})

	return mux
}

func handleCashOp(w http.ResponseWriter, r *http.Request, mgr *bank.Manager, op func(*bank.Account, int64) (string, int64)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		AccountID string `json:"account_id"`
		Amount    int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	acc, err := mgr.Query(req.AccountID)
	if err != nil {
		writeErr(w, err)
		return
	}
	verb, amount := op(acc, req.Amount)
	writeJSON(w, http.StatusOK, map[string]any{
		verb:      amount,
		"balance": acc.Cash(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bank.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, bank.ErrDuplicateID), errors.Is(err, bank.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, bank.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
