// Package transcription holds the job, utterance and transcript types shared
// by speech-to-text backends, the Provider contract they implement, and the
// Poller that drives a submitted job to a terminal state.
//
//	job, _ := p.Submit(ctx, transcription.SubmitRequest{AudioURL: url, SpeakerLabels: true})
//	report, err := poller.Wait(ctx, job.ID)
//
// Backends live in subpackages and register themselves by name:
//
//   - transcription/assemblyai: AssemblyAI v2 REST API
package transcription
