// Package deviceapi provides an HTTP client for the eCO ceiling fan controller.
//
// The controller exposes a single JSON endpoint:
//
//	GET  /api/state  -> {"on": true, "fan": 2}
//	POST /api/state  <- {"on": true, "fan": 2}
//
// fan is 1 (low), 2 (medium) or 3 (high). Power and speed are independent:
// a fan that is off still remembers its speed.
//
// # Usage Example
//
//	client := deviceapi.NewClient("http://192.168.1.40")
//
//	state, err := client.GetState(ctx)
//	if err != nil {
//	    fmt.Println(deviceapi.GetShortErrorMessage(err))
//	    return
//	}
//
//	_, err = client.SetState(ctx, deviceapi.State{On: true, Fan: 3})
//
// # Error Handling
//
// Every method returns a *DeviceError. Callers branch on the category:
//
//   - IsNetworkError: the request did not complete (timeout, refused, DNS)
//   - IsParseError: the controller answered but the body was not usable
//
// HTTP status codes are never treated as failures. The client does not
// retry; polling callers simply try again on the next tick.
package deviceapi
