// Package fingerprint derives the content identity used to match a playing
// video against the remote danmaku database.
//
// The identity is the file's byte size plus an MD5 digest of its first 16 MiB,
// read in 1 MiB chunks so a cancelled run stops after at most one chunk of I/O.
// Streamed sources (http, rtmp, udp and other URI schemes) are never opened;
// they still match by name alone.
package fingerprint
