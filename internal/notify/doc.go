// Package notify delivers fired alarms to the user.
//
// A Notifier gets exactly one attempt per fired alarm. LogNotifier writes the
// alarm to the structured log, CommandNotifier starts the platform's desktop
// notification tool (or a configured command), and Multi fans out to several.
package notify
