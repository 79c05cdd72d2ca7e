// Package export writes assembled comment threads to spreadsheets for
// offline moderation review.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/softiel/backend/internal/thread"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Comments"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []string{"Depth", "Kind", "ID", "Parent ID", "Author", "Email", "Role", "State", "Likes", "Created At", "Content"}

// Row is one exported comment.
type Row struct {
	Depth     int
	Kind      thread.Kind
	ID        string
	ParentID  string
	Author    string
	Email     string
	Role      thread.AuthorRole
	State     thread.State
	Likes     int
	CreatedAt time.Time
	Content   string
}

// Rows lists the tree in render order.
func Rows(nodes []*thread.Node) []Row {
	var rows []Row
	var parents []string
	thread.Walk(nodes, func(n *thread.Node, depth int) bool {
		parents = append(parents[:depth], n.ID.String())
		parentID := ""
		if depth > 0 {
			parentID = parents[depth-1]
		}
		rows = append(rows, Row{
			Depth:     depth,
			Kind:      kindOf(n, depth),
			ID:        n.ID.String(),
			ParentID:  parentID,
			Author:    n.AuthorName,
			Email:     n.AuthorEmail,
			Role:      n.Role,
			State:     n.State,
			Likes:     n.Likes,
			CreatedAt: n.CreatedAt,
			Content:   n.Content,
		})
		return true
	})
	return rows
}

func kindOf(n *thread.Node, depth int) thread.Kind {
	switch {
	case depth == 0:
		return thread.KindComment
	case n.Role == thread.RoleAdmin:
		return thread.KindAdminReply
	default:
		return thread.KindReply
	}
}

// WriteXLSX writes the tree as a single-sheet workbook. Content is indented
// by depth so the nesting stays readable.
func WriteXLSX(w io.Writer, nodes []*thread.Node) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	for i, r := range Rows(nodes) {
		values := []interface{}{
			r.Depth,
			string(r.Kind),
			r.ID,
			r.ParentID,
			r.Author,
			r.Email,
			r.Role.String(),
			string(r.State),
			r.Likes,
			r.CreatedAt.UTC().Format(time.RFC3339),
			strings.Repeat("  ", r.Depth) + r.Content,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// Bytes renders the workbook into memory.
func Bytes(nodes []*thread.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, nodes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
