/*
Package session provides the server and client for the event channel between a browser and the agent. It uses WebSockets for bidi messaging so only requires an HTTP server.

Every message in either direction is a JSON envelope naming an event and carrying its payload. The schema for these messages is described in types.go.

The protocol proceeds as follows:

1. The client opens a WebSocket connection with the server.
2. The server sends a "status" event with stat "ready".
3. The client sends "action" events, each carrying one command line.
4. For each command, the server sends at most one result event ("results", "lastline" or "stateresult") once the work behind it completes.
   Results are sent in completion order, not in the order the actions were sent.
5. Either side closes the connection when it is done.

Browsers may only connect from a page served by the agent's own host, or from an origin matching the server's OriginPatterns.

Per-connection state (the last lines read by "readfile") lives only as long as the connection.
Processes still running when the connection closes are killed, except background loggers started by "logstart".
*/
package session
