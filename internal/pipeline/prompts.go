package pipeline

// Prompts for the three reason-then-extract stages. Reasoning prompts invite
// free-form analysis; extraction prompts fix the exact JSON schema and forbid
// anything but JSON, since their output is fed to the recovery engine.

const decompositionReasonPrompt = `You are an expert government contracting analyst.
Read the RFP below and enumerate the distinct tasks of work it requires.
For each task, give it a short identifier, a title, and a description of the work.
Where a task contains clearly separable sub-work, break it into subtasks with their own
identifiers, titles, and descriptions. Think through the RFP section by section and
explain your reasoning as you go.

RFP:
%s`

const decompositionExtractPrompt = `Extract the task breakdown from the analysis you are given.
Respond with ONLY a JSON object, no commentary and no code fences, matching exactly:
{"tasks":[{"taskId":"...","title":"...","description":"...","subTasks":[{"subTaskId":"...","title":"...","description":"..."}]}]}
Tasks with no separable sub-work must have an empty subTasks array.`

const lcatReasonPrompt = `You are an expert government contracting staffing analyst.
Below is a task breakdown derived from an RFP, as JSON. Assign recommended labor
categories (LCATs) such as "Program Manager", "Senior Software Engineer", or
"Help Desk Technician" to the work.

Rule: when a task has subtasks, the LCATs attach to each subtask, never to the parent
task. Only tasks without subtasks receive LCATs directly. Explain your assignments.

Task breakdown:
%s`

const lcatExtractPrompt = `Extract the labor category assignments from the analysis you are given.
Respond with ONLY a JSON object, no commentary and no code fences, matching exactly:
{"tasks":[{"taskId":"...","title":"...","description":"...","subTasks":[{"subTaskId":"...","title":"...","description":"...","recommendedLCATs":["..."]}],"recommendedLCATs":["..."]}]}
recommendedLCATs must appear on subtasks when subTasks is non-empty, and on the task
itself only when subTasks is empty.`

const hoursTopDownReasonPrompt = `You are an expert government contracting staffing analyst.
Below is a task breakdown with labor category assignments, as JSON. Estimate annual hours
for every (task-or-subtask, labor category) pair using a TOP-DOWN approach.

Policy:
- The total allocation is %.1f FTE. Convert at %.0f hours per FTE and show the conversion.
- Distribute the resulting hours across the staffing lines and show the distribution math.
- The "Program Manager" role is capped at %.0f hours total unless the RFP explicitly
  requires multiple program managers; state the exception if you apply it.
- Every line needs a mathRationale spelling out its derivation
  (e.g. "0.5 FTE x 1880 hr = 940 hr") and a basis citing what the estimate rests on.

Task breakdown with labor categories:
%s`

const hoursBottomUpReasonPrompt = `You are an expert government contracting staffing analyst.
Below is a task breakdown with labor category assignments, as JSON. Estimate annual hours
for every (task-or-subtask, labor category) pair using a BOTTOM-UP approach.

Policy:
- Derive hours from workload evidence in the task descriptions (ticket volumes, deliverable
  counts, meeting cadences), not from a target headcount.
- Use %.0f hours per FTE when you need to sanity-check a derived figure against headcount.
- The "Program Manager" role is capped at %.0f hours total unless the RFP explicitly
  requires multiple program managers; state the exception if you apply it.
- Every line needs a mathRationale spelling out its derivation
  (e.g. "250 tickets x 0.5 hr = 125 hr") and a basis citing the workload evidence used.

Task breakdown with labor categories:
%s`

const hoursExtractPrompt = `Extract the staffing lines from the analysis you are given.
Respond with ONLY a JSON object, no commentary and no code fences, matching exactly:
{"tasks":[{"taskId":"...","lcat":"...","hours":0,"mathRationale":"...","basis":"..."}]}
Use the subTaskId as taskId for lines that staff a subtask. hours must be a non-negative
number. mathRationale and basis are required on every line.`
