package websocket

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Chronograph</title>
  <style>
    :root { font-family: "Segoe UI", Arial, sans-serif; background: #0b1c2c; color: #e8f0f7; }
    body { margin: 0; padding: 16px; display: grid; gap: 12px; max-width: 760px; margin-inline: auto; }
    .card { background: rgba(16, 38, 58, 0.9); border: 1px solid #264c6f; border-radius: 12px; padding: 14px 18px; }
    #status.open { color: #6fdc8c; } #status.closed { color: #ff8389; } #status.connecting { color: #f1c21b; }
    #chart svg rect { fill: #4589ff; } #chart svg text { fill: #e8f0f7; font-size: 12px; }
    #log { max-height: 180px; overflow-y: auto; margin: 0; padding-left: 18px; }
    .readout span { font-size: 28px; margin-right: 18px; }
    label { margin-right: 12px; } input { width: 80px; }
  </style>
</head>
<body>
  <div class="card">Device: <code id="endpoint">-</code> <strong id="status" class="closed">closed</strong></div>
  <div class="card readout">
    <span><b id="metric">-</b> m/s</span><span><b id="joules">-</b> J</span><span><b id="rps">-</b> rps</span>
  </div>
  <div class="card" id="chart"></div>
  <div class="card"><ul id="log"></ul></div>
  <div class="card">
    <label>BB weight (g) <input id="bbWeight" type="number" step="0.01"></label>
    <label>Sensor distance (mm) <input id="distanceAcross" type="number" step="1"></label>
    <button id="save">Save</button> <span id="error"></span>
  </div>
  <script>
    const $ = (id) => document.getElementById(id);
    let ws;
    function connect() {
      ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
      ws.onmessage = (ev) => {
        const msg = JSON.parse(ev.data);
        if (msg.type === 'error') { $('error').textContent = msg.data; return; }
        if (msg.type !== 'view') return;
        const v = msg.data;
        $('status').textContent = v.state; $('status').className = v.state;
        $('endpoint').textContent = v.endpoint;
        $('chart').innerHTML = v.svg;
        $('log').innerHTML = '';
        (v.log || []).forEach((line) => { const li = document.createElement('li'); li.textContent = line; $('log').appendChild(li); });
        $('log').scrollTop = $('log').scrollHeight;
        if (v.lastShot) { $('metric').textContent = v.lastShot.metric.toFixed(1); $('joules').textContent = v.lastShot.joules.toFixed(1); }
        if (v.burst) { $('rps').textContent = v.burst.rps.toFixed(1); }
        if (v.config && document.activeElement.tagName !== 'INPUT') {
          $('bbWeight').value = v.config.bbWeight; $('distanceAcross').value = v.config.distanceAcross;
        }
      };
      ws.onclose = () => setTimeout(connect, 2000);
    }
    $('save').onclick = () => {
      $('error').textContent = '';
      ws.send(JSON.stringify({ type: 'saveConfig', data: {
        bbWeight: parseFloat($('bbWeight').value), distanceAcross: parseInt($('distanceAcross').value, 10) } }));
    };
    connect();
  </script>
</body>
</html>`
