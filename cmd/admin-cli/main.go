package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var statuses = []string{"pending", "processing", "shipped", "delivered", "cancelled"}

type order struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
	Items      []struct {
		Name     string `json:"name"`
		Size     string `json:"size"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

type product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

type productList struct {
	Products []product `json:"products"`
}

type model struct {
	orders         []order
	products       []product
	showStock      bool
	selectedOrder  int
	selectedStatus int
	status         string
	busy           bool
}

func initialModel() model {
	return model{status: "Press r to load orders"}
}

func (m model) Init() tea.Cmd {
	return fetchOrdersCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selectedOrder > 0 {
				m.selectedOrder--
			}
		case "down":
			if m.selectedOrder < len(m.orders)-1 {
				m.selectedOrder++
			}
		case "left":
			if m.selectedStatus > 0 {
				m.selectedStatus--
			}
		case "right":
			if m.selectedStatus < len(statuses)-1 {
				m.selectedStatus++
			}
		case "r":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Loading orders..."
			return m, fetchOrdersCmd()
		case "p":
			if m.busy {
				return m, nil
			}
			m.showStock = !m.showStock
			if m.showStock {
				m.busy = true
				m.status = "Loading stock..."
				return m, fetchStockCmd()
			}
		case "enter":
			if m.busy || len(m.orders) == 0 {
				return m, nil
			}
			m.busy = true
			m.status = "Updating status..."
			return m, setStatusCmd(m.orders[m.selectedOrder].ID, statuses[m.selectedStatus])
		}
	case ordersLoaded:
		m.busy = false
		m.orders = msg.orders
		m.status = msg.status
		if m.selectedOrder >= len(m.orders) {
			m.selectedOrder = 0
		}
	case statusResult:
		m.busy = false
		m.status = msg.status
		return m, fetchOrdersCmd()
	case stockLoaded:
		m.busy = false
		m.products = msg.products
		m.status = msg.status
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "threadline admin")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Orders:")
	if len(m.orders) == 0 {
		fmt.Fprintln(b, "  (none)")
	}
	for i, o := range m.orders {
		marker := " "
		if i == m.selectedOrder {
			marker = ">"
		}
		items := 0
		for _, it := range o.Items {
			items += it.Quantity
		}
		fmt.Fprintf(b, " %s %s  user=%s  items=%d  total=%d  [%s]\n", marker, shortID(o.ID), shortID(o.UserID), items, o.TotalPrice, o.Status)
	}
	if m.showStock {
		fmt.Fprintln(b, "")
		fmt.Fprintln(b, "Stock:")
		if len(m.products) == 0 {
			fmt.Fprintln(b, "  (none)")
		}
		for _, p := range m.products {
			fmt.Fprintf(b, "   %-40s %d\n", p.Name, p.Stock)
		}
	}
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Set status (use left/right):")
	for i, st := range statuses {
		marker := " "
		if i == m.selectedStatus {
			marker = "*"
		}
		fmt.Fprintf(b, " %s %s", marker, st)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "\nStatus: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: up/down select order, left/right select status, enter apply, r reload, p stock, q quit")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type ordersLoaded struct {
	orders []order
	status string
}

type statusResult struct {
	status string
}

type stockLoaded struct {
	products []product
	status   string
}

func fetchStockCmd() tea.Cmd {
	return func() tea.Msg {
		body, err := doRequest(http.MethodGet, "/api/products?limit=100", nil)
		if err != nil {
			return stockLoaded{status: fmt.Sprintf("Stock load failed: %v", err)}
		}
		var list productList
		if err := json.Unmarshal(body, &list); err != nil {
			return stockLoaded{status: fmt.Sprintf("Decode failed: %v", err)}
		}
		return stockLoaded{products: list.Products, status: fmt.Sprintf("Loaded stock for %d products", len(list.Products))}
	}
}

func fetchOrdersCmd() tea.Cmd {
	return func() tea.Msg {
		body, err := doRequest(http.MethodGet, "/api/orders/admin/all", nil)
		if err != nil {
			return ordersLoaded{status: fmt.Sprintf("Load failed: %v", err)}
		}
		var orders []order
		if err := json.Unmarshal(body, &orders); err != nil {
			return ordersLoaded{status: fmt.Sprintf("Decode failed: %v", err)}
		}
		return ordersLoaded{orders: orders, status: fmt.Sprintf("Loaded %d orders", len(orders))}
	}
}

func setStatusCmd(orderID, status string) tea.Cmd {
	return func() tea.Msg {
		payload := map[string]any{"status": status}
		_, err := doRequest(http.MethodPut, "/api/orders/"+orderID+"/status", payload)
		if err != nil {
			return statusResult{status: fmt.Sprintf("Update failed: %v", err)}
		}
		return statusResult{status: fmt.Sprintf("Order %s -> %s", shortID(orderID), status)}
	}
}

func doRequest(method, path string, payload any) ([]byte, error) {
	baseURL := strings.TrimRight(getenv("STOREFRONT_BASE_URL", "http://localhost:8080"), "/")
	var reqBody io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		reqBody = bytes.NewReader(data)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", getenv("ADMIN_USER_ID", "admin"))
	req.Header.Set("X-User-Admin", "true")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func main() {
	if _, err := tea.NewProgram(initialModel()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
