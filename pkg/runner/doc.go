/*
Package runner drives a single assembly run from input validation to page-memory teardown.

The Driver composes the configuration materializer, the run-directory stager,
the process supervisor and the lifecycle controller:

 1. validate the input and make it absolute
 2. materialize shasta.conf from the defaults plus overrides
 3. create the run directory and stage the configuration into it
 4. verify and scaffold the run directory
 5. launch the worker there and wait for it
 6. save and/or release the page memory

The lifecycle controller must be installed by the caller before Run so that an
interrupt at any point releases the page memory.
*/
package runner
