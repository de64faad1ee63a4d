package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Read-only inspector for the message store. Scans one key prefix
// (msg:, unread:, conv:, connected: or user:) and renders it as a table.
func main() {
	dbPath := flag.String("db", "/tmp/doclink/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	limit := flag.Int("limit", 100, "Max rows to display")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := fmt.Sprintf(" doclink store - prefix %q ", *prefix)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Sender", "Recipient", "At", "Read", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes) && rows < *limit; it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append(describe(rawKey, v))
				return nil
			})
			if err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d row(s)\n", rows)
}

type messageRow struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	At        int64  `json:"at"`
	Read      bool   `json:"read"`
}

// describe renders one row. Index entries (unread:, conv:) store message
// keys, not records, so their value is shown verbatim.
func describe(key string, value []byte) []string {
	if !strings.HasPrefix(key, "msg:") {
		return []string{key, "", "", "", "", string(value)}
	}

	var m messageRow
	if err := json.Unmarshal(value, &m); err != nil {
		return []string{key, "", "", "", "", fmt.Sprintf("unreadable: %v", err)}
	}

	content := m.Content
	if len(content) > 40 {
		content = content[:40] + "..."
	}
	return []string{
		key,
		m.Sender,
		m.Recipient,
		time.Unix(0, m.At).UTC().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("%t", m.Read),
		content,
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
