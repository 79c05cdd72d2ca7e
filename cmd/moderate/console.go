package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// console drives one thread.Session from a line-oriented menu.
type console struct {
	in      *bufio.Reader
	out     io.Writer
	gateway thread.Gateway
	logger  thread.ActivityLogger
	cfg     config.CommentsConfig
	log     *zap.Logger
	session *thread.Session
}

func newConsole(in io.Reader, out io.Writer, gw thread.Gateway, activity thread.ActivityLogger, cfg config.CommentsConfig, log *zap.Logger) *console {
	return &console{
		in:      bufio.NewReader(in),
		out:     out,
		gateway: gw,
		logger:  activity,
		cfg:     cfg,
		log:     log,
	}
}

func (c *console) run() {
	for {
		c.printMenu()
		choice, ok := c.prompt("Choose: ")
		if !ok {
			return
		}

		switch choice {
		case "1":
			c.load()
		case "2":
			c.show()
		case "3":
			c.withID((*thread.Session).Approve, "Approved")
		case "4":
			c.withID((*thread.Session).Reject, "Rejected")
		case "5":
			c.like(true)
		case "6":
			c.like(false)
		case "7":
			c.reply()
		case "8":
			c.withID((*thread.Session).Delete, "Deleted")
		case "0":
			fmt.Fprintln(c.out, "Bye")
			return
		default:
			fmt.Fprintln(c.out, "Invalid choice")
		}
	}
}

func (c *console) printMenu() {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "========================================")
	fmt.Fprintln(c.out, "       SOFTIEL COMMENT MODERATION")
	fmt.Fprintln(c.out, "========================================")
	if c.session != nil {
		fmt.Fprintf(c.out, "Blog: %s\n", c.session.BlogID())
	}
	fmt.Fprintln(c.out, "1. Load blog")
	fmt.Fprintln(c.out, "2. Show thread")
	fmt.Fprintln(c.out, "3. Approve comment")
	fmt.Fprintln(c.out, "4. Reject comment")
	fmt.Fprintln(c.out, "5. Like comment")
	fmt.Fprintln(c.out, "6. Unlike comment")
	fmt.Fprintln(c.out, "7. Reply as admin")
	fmt.Fprintln(c.out, "8. Delete comment")
	fmt.Fprintln(c.out, "0. Exit")
	fmt.Fprintln(c.out, "----------------------------------------")
}

// prompt reads one trimmed line. ok is false at end of input.
func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (c *console) load() {
	raw, _ := c.prompt("Blog ID: ")
	blogID, err := uuid.Parse(raw)
	if err != nil {
		fmt.Fprintln(c.out, "Invalid blog ID")
		return
	}

	c.session = thread.NewSession(c.gateway, thread.NewClassifier(c.cfg.AdminEmail), blogID,
		thread.WithActivityLogger(c.logger),
		thread.WithLogger(c.log),
		thread.WithPreviewLength(c.cfg.PreviewLength),
	)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	tree, _, err := c.session.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Loaded %d comments\n", thread.Count(tree))
}

func (c *console) ready() bool {
	if c.session == nil {
		fmt.Fprintln(c.out, "Load a blog first")
		return false
	}
	return true
}

func (c *console) show() {
	if !c.ready() {
		return
	}
	rendered := thread.Render(c.session.Tree(), thread.ViewModerator)
	if len(rendered) == 0 {
		fmt.Fprintln(c.out, "No comments yet")
		return
	}
	c.printNodes(rendered)
}

func (c *console) printNodes(nodes []thread.RenderedNode) {
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Depth)
		likes := "-"
		if n.Likes != nil {
			likes = fmt.Sprint(*n.Likes)
		}
		fmt.Fprintf(c.out, "%s[%s] %s (%s, %s, likes %s)\n", indent, n.Key, n.AuthorName, n.Role, n.State, likes)
		fmt.Fprintf(c.out, "%s  %s\n", indent, thread.Preview(n.Content, 80))
		c.printNodes(n.Children)
	}
}

func (c *console) readID() (uuid.UUID, bool) {
	raw, _ := c.prompt("Comment ID: ")
	id, err := uuid.Parse(raw)
	if err != nil {
		fmt.Fprintln(c.out, "Invalid comment ID")
		return uuid.Nil, false
	}
	return id, true
}

func (c *console) withID(fn func(*thread.Session, context.Context, uuid.UUID) error, done string) {
	if !c.ready() {
		return
	}
	id, ok := c.readID()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := fn(c.session, ctx, id); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, done)
}

func (c *console) like(like bool) {
	if !c.ready() {
		return
	}
	id, ok := c.readID()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var count int
	var err error
	if like {
		count, err = c.session.Like(ctx, id)
	} else {
		count, err = c.session.Unlike(ctx, id)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Likes: %d\n", count)
}

func (c *console) reply() {
	if !c.ready() {
		return
	}
	id, ok := c.readID()
	if !ok {
		return
	}
	content, _ := c.prompt("Reply: ")
	if content == "" {
		fmt.Fprintln(c.out, "Reply cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	_, to, err := c.session.Reply(ctx, id, c.cfg.AdminName, c.cfg.AdminEmail, content)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Replied to %s: %q\n", to.AuthorName, to.Preview)
}
