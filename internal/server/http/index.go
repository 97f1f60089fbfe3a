package httpserver

// indexHTML is a minimal built-in board page: list recent chirps, post
// new ones, follow the live feed over the /tail websocket.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>chirp</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 2em auto; }
#chirps li { margin: 0.2em 0; }
#error { color: #b00; }
</style>
</head>
<body>
<h1>chirp</h1>
<form id="post"><input id="msg" autofocus autocomplete="off" placeholder="say something">
<button>chirp</button> <button id="clear" type="button">clear all</button></form>
<p id="error"></p>
<ol id="chirps" reversed></ol>
<script>
var list = document.getElementById('chirps');
var errEl = document.getElementById('error');
function render(chirps) {
  for (var i = 0; i < chirps.length; i++) {
    var li = document.createElement('li');
    li.textContent = chirps[i].msg;
    list.insertBefore(li, list.firstChild);
    while (list.children.length > 20) list.removeChild(list.lastChild);
  }
}
var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
var ws = new WebSocket(scheme + location.host + '/tail');
ws.onmessage = function (e) {
  var frame = JSON.parse(e.data);
  if (frame.event === 'chirps') { errEl.textContent = ''; render(frame.data.chirps); }
  else if (frame.event === 'cleared') { list.innerHTML = ''; }
  else if (frame.event === 'app_error') { errEl.textContent = frame.data; }
};
document.getElementById('post').onsubmit = function (e) {
  e.preventDefault();
  var msg = document.getElementById('msg');
  if (!msg.value) return;
  fetch('/new', { method: 'POST', body: msg.value });
  msg.value = '';
};
document.getElementById('clear').onclick = function () {
  fetch('/clear', { method: 'POST' });
};
</script>
</body>
</html>
`
