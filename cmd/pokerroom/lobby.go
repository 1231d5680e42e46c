package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gorilla/websocket"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	startedStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("11"))

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// LobbyCmd prints the room listing a lobby client would see.
type LobbyCmd struct {
	Server   string        `kong:"default='http://localhost:8080',help='Server base URL'"`
	InitData string        `kong:"name='init-data',default='1:lobby',help='Auth payload sent to the server'"`
	Wait     time.Duration `kong:"default='0s',help='Wait this long for the server to become healthy'"`
	Timeout  time.Duration `kong:"default='5s',help='Time allowed for the exchange'"`
}

func (c *LobbyCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Wait+c.Timeout)
	defer cancel()

	base := strings.TrimSuffix(c.Server, "/")
	if c.Wait > 0 {
		waitCtx, cancelWait := context.WithTimeout(ctx, c.Wait)
		err := server.WaitForHealthy(waitCtx, base, 200*time.Millisecond)
		cancelWait()
		if err != nil {
			return err
		}
	}

	rooms, err := fetchRooms(ctx, wsURL(base), c.InitData)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println("No open rooms")
		return nil
	}
	fmt.Fprintln(os.Stdout, renderRooms(rooms))
	return nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}

func fetchRooms(ctx context.Context, url, initData string) ([]protocol.RoomInfo, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	auth := map[string]string{"type": protocol.TypeAuth, "initData": initData}
	if err := conn.WriteJSON(auth); err != nil {
		return nil, fmt.Errorf("send auth: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		var msg struct {
			Type    string              `json:"type"`
			Message string              `json:"message"`
			Rooms   []protocol.RoomInfo `json:"rooms"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		switch msg.Type {
		case protocol.TypeRoomsList:
			return msg.Rooms, nil
		case protocol.TypeError:
			return nil, errors.New(msg.Message)
		case protocol.TypeReconnected:
			return nil, errors.New("this identity is seated in a room; use another init-data")
		}
	}
}

func renderRooms(rooms []protocol.RoomInfo) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ROOM", "PLAYERS", "BOTS", "BLINDS", "STACK", "STATUS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 && rooms[row].Started {
				return startedStyle
			}
			return cellStyle
		})

	for _, r := range rooms {
		status := "waiting"
		if r.Started {
			status = "playing"
		}
		if r.PlayForExternalCurrency {
			status += " ($)"
		}
		t.Row(
			r.Name,
			fmt.Sprintf("%d/%d", r.PlayerCount, r.MaxPlayers),
			strconv.Itoa(r.BotCount),
			fmt.Sprintf("%d/%d", r.SmallBlind, r.BigBlind),
			strconv.Itoa(r.StartChips),
			status,
		)
	}
	return t.Render()
}
