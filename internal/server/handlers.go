// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, hub statistics and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the connection, and hands the new
// client to the hub, which runs its pumps and replays history.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(s.newID(), conn, s.hub, r.RemoteAddr, s.cfg)
	if err := s.hub.start(client); err != nil {
		s.logger.Info("rejecting connection during shutdown", "remote", r.RemoteAddr)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat relay is running!")
}

// StatsHandler reports live session counts as JSON.
func (s *Server) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	sessions, named := s.hub.Stats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"sessions": sessions, "named": named}); err != nil {
		s.logger.Warn("error writing stats response", "error", err)
	}
}

// TestPageHandler serves an HTML page that speaks the relay protocol: pick a
// name, chat, watch the roster and refresh the history.
func (s *Server) TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		s.logger.Warn("error writing HTML response", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #layout { display: flex; gap: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            width: 500px;
            padding: 10px;
            overflow-y: scroll;
            background-color: #f9f9f9;
        }
        #roster { border: 1px solid #ccc; width: 160px; padding: 10px; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .system { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <h1>GoChat Relay Test</h1>

    <div>
        <input type="text" id="nameInput" placeholder="Display name">
        <button onclick="join()">Join</button>
        <button onclick="refresh()">Refresh history</button>
    </div>
    <div style="margin-top: 10px">
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <div id="layout" style="margin-top: 10px">
        <div id="messages"></div>
        <ul id="roster"></ul>
    </div>

    <script>
        const messagesDiv = document.getElementById('messages');
        const rosterList = document.getElementById('roster');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(scheme + location.host + '/ws');
        let displayName = '';

        function send(type, data) {
            ws.send(JSON.stringify({ type: type, data: data }));
        }

        function addRecord(rec) {
            const el = document.createElement('div');
            const time = new Date(rec.timestamp).toLocaleTimeString();
            el.textContent = '[' + time + '] ' + rec.displayName + ': ' + rec.text;
            if (rec.kind !== 'user-message') {
                el.className = 'system';
            }
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        ws.onmessage = function(event) {
            const frame = JSON.parse(event.data);
            if (frame.type === 'history') {
                messagesDiv.innerHTML = '';
                (frame.data || []).forEach(addRecord);
            } else if (frame.type === 'chatEvent') {
                addRecord(frame.data);
            } else if (frame.type === 'roster') {
                rosterList.innerHTML = '';
                (frame.data || []).forEach(function(name) {
                    const li = document.createElement('li');
                    li.textContent = name;
                    rosterList.appendChild(li);
                });
            }
        };

        function join() {
            displayName = nameInput.value.trim();
            if (displayName) {
                send('announce', displayName);
            }
        }

        function refresh() {
            send('refresh');
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text) {
                send('message', { displayName: displayName, text: text, timestamp: new Date().toISOString() });
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
