// Package xtream provides a client for the Xtream Codes IPTV API.
//
// The API is the de-facto HTTP interface centered on player_api.php,
// exposing live, VOD, and series catalogs plus XMLTV EPG data. Provider
// implementations are inconsistent about field types (numbers sometimes
// arrive as strings), so the response types use flexible JSON decoding.
//
// Stream playback URLs are resolved with a probe sequence because the API
// family disagrees about which action returns them; see ResolveStreamURL.
package xtream
