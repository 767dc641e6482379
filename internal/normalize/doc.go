// Package normalize turns raw upstream payloads into price events.
//
// Normalize never fails: malformed payloads yield zero events and are counted
// in Stats().Dropped. Error payloads yield exactly one error marker.
package normalize
