package api

import (
	"net/http"
)

const operatorUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Stagehand - Operator Console</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #16213e;
            padding: 12px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        header h1 { font-size: 16px; }
        #status { font-size: 13px; color: #8fb6e8; }
        main { flex: 1; display: flex; min-height: 0; }
        #controls {
            width: 260px;
            background: #16213e;
            border-right: 1px solid #0f3460;
            padding: 16px;
        }
        #controls button {
            display: block;
            width: 100%;
            margin-bottom: 8px;
            padding: 10px;
            background: #0f3460;
            border: none;
            color: #eee;
            font-family: inherit;
            cursor: pointer;
        }
        #controls button:hover { background: #1a4a80; }
        #controls input {
            width: 100%;
            margin-bottom: 8px;
            padding: 8px;
            background: #1a1a2e;
            border: 1px solid #0f3460;
            color: #eee;
            font-family: inherit;
        }
        #result { margin-top: 10px; font-size: 12px; min-height: 16px; }
        #result.ok { color: #6fdc8c; }
        #result.err { color: #ff6b6b; }
        #log {
            flex: 1;
            overflow-y: auto;
            padding: 12px 16px;
            font-size: 12px;
            line-height: 1.6;
        }
        #log .level-error { color: #ff6b6b; }
        #log .level-warn { color: #ffd166; }
        #log .name { color: #8fb6e8; }
    </style>
</head>
<body>
    <header>
        <h1>stagehand</h1>
        <span id="status">connecting&hellip;</span>
    </header>
    <main>
        <div id="controls">
            <button onclick="control('/player/play')">Play</button>
            <button onclick="control('/player/pause')">Pause</button>
            <button onclick="control('/player/stop')">Stop</button>
            <input id="subject" placeholder="subject id">
            <button onclick="goToSubject()">Go To Subject</button>
            <button onclick="control('/player/frame/dismiss')">Dismiss Frame</button>
            <div id="result"></div>
        </div>
        <div id="log"></div>
    </main>
    <script>
        var logEl = document.getElementById('log');
        var statusEl = document.getElementById('status');
        var resultEl = document.getElementById('result');
        var subjectInput = document.getElementById('subject');

        function showResult(ok, msg) {
            resultEl.textContent = msg;
            resultEl.className = ok ? 'ok' : 'err';
        }

        function control(path, body) {
            fetch(path, {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: body ? JSON.stringify(body) : undefined
            })
            .then(function(res) { return res.json(); })
            .then(function(data) {
                showResult(data.ok, data.ok ? 'OK' : (data.error || 'failed'));
                refreshStatus();
            })
            .catch(function() { showResult(false, 'Network error'); });
        }

        function goToSubject() {
            var id = subjectInput.value.trim();
            if (!id) { showResult(false, 'subject id required'); return; }
            control('/player/goto', { subject: id });
        }

        function refreshStatus() {
            fetch('/player/status')
            .then(function(res) { return res.json(); })
            .then(function(data) {
                var parts = [data.state];
                if (data.subject) parts.push('@ ' + data.subject);
                parts.push(data.stage_connected ? 'stage: up' : 'stage: down');
                statusEl.textContent = parts.join(' | ');
            })
            .catch(function() { statusEl.textContent = 'unreachable'; });
        }

        function appendEvent(e) {
            var line = document.createElement('div');
            line.className = 'level-' + e.level;
            var ts = (e.ts || '').replace('T', ' ').slice(0, 19);
            line.innerHTML = ts + ' <span class="name">' + e.event + '</span>' +
                (e.msg ? ' ' + e.msg : '') +
                (e.fields ? ' ' + JSON.stringify(e.fields) : '');
            logEl.appendChild(line);
            logEl.scrollTop = logEl.scrollHeight;
        }

        function connectEvents() {
            var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            var ws = new WebSocket(proto + location.host + '/ws/events');
            ws.onmessage = function(msg) {
                try { appendEvent(JSON.parse(msg.data)); } catch (e) {}
            };
            ws.onclose = function() {
                statusEl.textContent = 'event stream closed, retrying…';
                setTimeout(connectEvents, 2000);
            };
        }

        subjectInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') goToSubject();
        });

        connectEvents();
        refreshStatus();
        setInterval(refreshStatus, 5000);
    </script>
</body>
</html>`

// uiHandler serves the operator UI HTML page.
func (srv *Server) uiHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(operatorUIHTML))
}
