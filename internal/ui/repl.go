package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lexavo/conseil/internal/client"
	"github.com/lexavo/conseil/internal/controller"
	"github.com/lexavo/conseil/internal/model/chat"
)

const helpText = `Commandes :
  /new          nouvelle consultation
  /list         liste des conversations
  /open N       ouvrir la conversation N
  /delete N     supprimer la conversation N
  /sources      sources de la dernière réponse
  /dismiss      fermer le panneau d'erreur
  /help         cette aide
  /quit         quitter
Tout autre texte est envoyé à l'assistant.`

// REPL is the interactive terminal session: it reads commands and questions,
// drives the controller, and renders the resulting snapshots.
type REPL struct {
	ctrl    *controller.Controller
	monitor *client.Monitor
	in      *bufio.Scanner
	out     io.Writer
}

// NewREPL wires the interactive session.
func NewREPL(ctrl *controller.Controller, monitor *client.Monitor, in io.Reader, out io.Writer) *REPL {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	return &REPL{ctrl: ctrl, monitor: monitor, in: scanner, out: out}
}

// Run blocks until the user quits, input ends, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "Conseil — assistant juridique et bancaire. /help pour les commandes.")
	r.renderState()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.runCommand(line); quit {
				return nil
			}
			continue
		}

		r.send(ctx, line)
	}
}

func (r *REPL) runCommand(line string) (quit bool) {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/new":
		r.ctrl.StartNewConversation()
		fmt.Fprintln(r.out, "Nouvelle consultation ouverte.")
	case "/list":
		snap := r.ctrl.Snapshot()
		RenderConversationList(r.out, snap.Conversations, snap.ActiveID)
	case "/open":
		if conversation, ok := r.pick(args); ok {
			r.ctrl.LoadConversation(conversation.ID)
			r.renderState()
		}
	case "/delete":
		if conversation, ok := r.pick(args); ok {
			r.ctrl.DeleteConversation(conversation.ID)
			fmt.Fprintf(r.out, "Conversation %q supprimée.\n", conversation.Title)
		}
	case "/sources":
		r.showLastSources()
	case "/dismiss":
		r.ctrl.ClearError()
	default:
		fmt.Fprintf(r.out, "Commande inconnue : %s (/help)\n", command)
	}
	return false
}

// pick resolves a 1-based index argument against the current sidebar order.
func (r *REPL) pick(args []string) (chat.Conversation, bool) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "Usage : /open N ou /delete N")
		return chat.Conversation{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(r.out, "Numéro invalide : %s\n", args[0])
		return chat.Conversation{}, false
	}

	conversations := r.ctrl.Snapshot().Conversations
	if n < 1 || n > len(conversations) {
		fmt.Fprintf(r.out, "Numéro hors limites : %d\n", n)
		return chat.Conversation{}, false
	}
	return conversations[n-1], true
}

func (r *REPL) send(ctx context.Context, text string) {
	fmt.Fprintln(r.out, "...")
	if err := r.ctrl.SendMessage(ctx, text); err != nil {
		RenderErrorPanel(r.out, r.ctrl.Snapshot().Err)
		return
	}

	snap := r.ctrl.Snapshot()
	if len(snap.Messages) > 0 {
		RenderMessage(r.out, snap.Messages[len(snap.Messages)-1])
	}
}

func (r *REPL) showLastSources() {
	snap := r.ctrl.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		message := snap.Messages[i]
		if message.Role != chat.RoleAssistant {
			continue
		}
		if len(message.Sources) == 0 {
			fmt.Fprintln(r.out, "Aucune source pour la dernière réponse.")
			return
		}
		RenderSources(r.out, message.Sources)
		return
	}
	fmt.Fprintln(r.out, "Aucune réponse de l'assistant pour l'instant.")
}

func (r *REPL) renderState() {
	snap := r.ctrl.Snapshot()
	RenderBanner(r.out, r.monitor == nil || r.monitor.Healthy())
	RenderErrorPanel(r.out, snap.Err)
	RenderTranscript(r.out, snap.Messages)
}
