// Package preflight provides readiness checks for the external services
// and filesystem paths that dailyshorts depends on.
//
// These checks run in two contexts:
//   - The pipeline calls WaitForRenderer before generating a plan. If the
//     render service never reports healthy, the run stops before any paid
//     generation call is made.
//   - The CLI "dailyshorts check" command uses RunAll to display the health of
//     every configured collaborator.
//
// Optional integrations are only checked when their credentials are present.
package preflight
